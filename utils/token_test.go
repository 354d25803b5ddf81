package utils

import "testing"

func TestNewShareIDIsUnique(t *testing.T) {
	a, err := NewShareID()
	if err != nil {
		t.Fatalf("new share id: %v", err)
	}
	b, err := NewShareID()
	if err != nil {
		t.Fatalf("new share id: %v", err)
	}
	if a == b {
		t.Fatalf("expected two generated share ids to differ")
	}
	if len(a) < 22 {
		t.Fatalf("expected a share id with at least 128 bits of encoded entropy, got length %d", len(a))
	}
}
