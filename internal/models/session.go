package models

import "time"

// Session backs the login cookie. Deleting the row logs the client out.
type Session struct {
	ID         string    `gorm:"primaryKey;size:36"`
	UserID     uint      `gorm:"index;not null"`
	TenantID   uint      `gorm:"index;not null"`
	ExpiresAt  time.Time `gorm:"index;not null"`
	UserAgent  string    `gorm:"size:255"`
	IP         string    `gorm:"size:64"`
	CreatedAt  time.Time
	LastSeenAt time.Time
}
