package model

import "time"

// User is a principal resolved from the external identity provider.
// The core never registers or authenticates users; it upserts this
// record the first time it sees a verified principal.
type User struct {
	ID          uint64     `gorm:"primaryKey;autoIncrement"`
	ExternalID  string     `gorm:"type:varchar(191);uniqueIndex;not null"`
	Email       string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	DisplayName string     `gorm:"type:varchar(255)"`
	TotalSpace  int64      `gorm:"not null;default:0"`
	UsedSpace   int64      `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (User) TableName() string { return "users" }
