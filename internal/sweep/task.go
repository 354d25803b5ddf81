package sweep

import "time"

// DeletionMessage is the RabbitMQ payload published for each share
// that the sweeper just transitioned to expired or that its owner
// revoked, and that the deletion
// worker consumes to remove the backing object. Grounded on teacher's
// internal/task.DownloadMessage shape, renamed to the deletion domain.
type DeletionMessage struct {
	ShareID    string    `json:"share_id"`
	StorageKey string    `json:"storage_key"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type dlqMessage struct {
	ShareID  string    `json:"share_id"`
	Attempt  int       `json:"attempt"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}
