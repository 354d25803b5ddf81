package model

import "time"

// DownloadEvent is the optional append-only analytics record spec §3
// allows; it has a retention policy independent of Share.
type DownloadEvent struct {
	ID              uint64 `gorm:"primaryKey;autoIncrement"`
	ShareID         uint64 `gorm:"index;not null"`
	At              time.Time `gorm:"not null"`
	RequesterHash   string `gorm:"type:varchar(128);not null"`
}

func (DownloadEvent) TableName() string { return "download_events" }
