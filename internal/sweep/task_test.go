package sweep

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDeletionMessageRoundTrip(t *testing.T) {
	msg := DeletionMessage{
		ShareID:    "share-123",
		StorageKey: "share-123/report.pdf",
		Attempt:    2,
		EnqueuedAt: time.Unix(1700000000, 0).UTC(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded DeletionMessage
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != msg {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, msg)
	}
}

func TestPickRetryDelayClampsToLastEntry(t *testing.T) {
	delays := []time.Duration{10 * time.Second, 30 * time.Second, 2 * time.Minute}

	if got := pickRetryDelay(1, delays); got != 10*time.Second {
		t.Fatalf("attempt 1: got %v, want 10s", got)
	}
	if got := pickRetryDelay(3, delays); got != 2*time.Minute {
		t.Fatalf("attempt 3: got %v, want 2m", got)
	}
	if got := pickRetryDelay(10, delays); got != 2*time.Minute {
		t.Fatalf("attempt beyond the schedule should clamp to the last delay, got %v", got)
	}
}

func TestPickRetryDelayEmptySchedule(t *testing.T) {
	if got := pickRetryDelay(1, nil); got != 0 {
		t.Fatalf("expected zero delay for an empty schedule, got %v", got)
	}
}
