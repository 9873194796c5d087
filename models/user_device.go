package models

import "time"

// UserDevice is a registered push endpoint. UpdatedAt is refreshed every time the
// app re-registers its token and doubles as the user's last-active marker.
type UserDevice struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index" json:"-"`
	Platform    string    `gorm:"size:16" json:"platform"` // "android" | "ios"
	TokenHash   string    `gorm:"size:64;index" json:"-"`
	EndpointARN string    `gorm:"size:256" json:"endpoint_arn"`
	Enabled     bool      `gorm:"not null" json:"enabled"`
	UpdatedAt   time.Time `gorm:"index" json:"updated_at"`
	CreatedAt   time.Time `json:"created_at"`
}
