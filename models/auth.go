package models

import "time"

// OtpCode is keyed by (email, purpose); re-requesting a code replaces the row.
type OtpCode struct {
	Email         string    `gorm:"primaryKey;size:255"`
	Purpose       string    `gorm:"primaryKey;size:16"` // "signup" | "reset"
	Code          string    `gorm:"size:8;not null"`
	ExpiresAt     time.Time `gorm:"not null"`
	Verified      bool
	Attempts      int
	LastAttemptAt time.Time
	UpdatedAt     time.Time
}

// FatSecretToken caches the client-credentials access token.
type FatSecretToken struct {
	ID        uint      `gorm:"primaryKey"`
	Token     string    `gorm:"type:text;not null"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
}
