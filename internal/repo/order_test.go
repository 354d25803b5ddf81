package repo

import "testing"

func TestSanitizeOrderByAllowsKnownColumns(t *testing.T) {
	cases := map[string]string{
		"created_at": "created_at",
		"EXPIRES_AT": "expires_at",
		" size_bytes ": "size_bytes",
		"id":         "id",
	}
	for input, want := range cases {
		if got := sanitizeOrderBy(input); got != want {
			t.Fatalf("sanitizeOrderBy(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSanitizeOrderByRejectsUnknownColumns(t *testing.T) {
	if got := sanitizeOrderBy("state; DROP TABLE shares"); got != "" {
		t.Fatalf("expected an unrecognized order_by to return empty, got %q", got)
	}
}
