package model

import "time"

// ShareState is the finite state machine spec §3 defines for a Share:
// pending_upload -> available -> expired -> deleted, with
// pending_upload able to transition straight to deleted if the
// client never completes the upload.
type ShareState string

const (
	ShareStatePendingUpload ShareState = "pending_upload"
	ShareStateAvailable     ShareState = "available"
	ShareStateExpired       ShareState = "expired"
	ShareStateDeleted       ShareState = "deleted"
)

// Share is the unit of cloud exchange. ShareID is opaque, URL-safe,
// and carries at least 128 bits of entropy (see utils.NewShareID).
type Share struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement"`
	ShareID       string     `gorm:"type:varchar(191);uniqueIndex;not null"`
	OwnerUserID   *uint64    `gorm:"index:idx_shares_owner_created,priority:1"`
	StorageKey    string     `gorm:"type:varchar(767);uniqueIndex;not null"`
	OriginalName  string     `gorm:"type:varchar(500);not null"`
	SizeBytes     int64      `gorm:"not null"`
	MimeType      string     `gorm:"type:varchar(255);not null"`
	PasswordHash  string     `gorm:"type:varchar(255)"`
	DownloadLimit *int       `gorm:""`
	DownloadCount int64      `gorm:"not null;default:0"`
	IsPublic      bool       `gorm:"not null;default:true"`
	State         ShareState `gorm:"type:varchar(32);not null;index:idx_shares_expiry_state"`
	CreatedAt     time.Time  `gorm:"not null;index:idx_shares_owner_created,priority:2,sort:desc"`
	ExpiresAt     time.Time  `gorm:"not null;index:idx_shares_expiry_state"`
	DeletedAt     *time.Time
	// Version implements the optimistic-concurrency guard spec §5
	// requires for state transitions and download-count increments.
	Version uint64 `gorm:"not null;default:0"`
}

func (Share) TableName() string { return "shares" }

// IsExpiredAt closes the race spec §4.4 calls out: the check is by
// timestamp, never by the (possibly stale) state column.
func (s *Share) IsExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// HasPassword reports whether the recipient must supply a password.
func (s *Share) HasPassword() bool {
	return s.PasswordHash != ""
}

// DownloadLimitReached reports whether download_count has hit the
// optional supplemental cap (original_source File.download_limit).
func (s *Share) DownloadLimitReached() bool {
	return s.DownloadLimit != nil && s.DownloadCount >= int64(*s.DownloadLimit)
}
