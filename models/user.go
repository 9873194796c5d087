package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Password  string `json:"-"` // empty for Google-only accounts
	GoogleSub string `gorm:"index" json:"-"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Disabled  bool   `gorm:"default:false" json:"-"`
}

// UserProfile holds the physical facts the recommendation prompt is built from.
type UserProfile struct {
	ID                uint       `gorm:"primaryKey" json:"-"`
	UserID            uint       `gorm:"uniqueIndex;not null" json:"-"`
	Birthdate         *time.Time `json:"birthdate,omitempty"`
	Weight            float64    `json:"weight"` // kg
	Height            float64    `json:"height"` // cm
	Gender            string     `gorm:"size:16" json:"gender"`
	ActivityLevel     string     `json:"activity_level"`
	Medicine          string     `json:"medicine"`
	Illnesses         string     `json:"illnesses"`
	SoftDrinkFastFood int        `json:"soft_drink_fast_food"` // times per week
	PhotoURL          string     `json:"photo_url,omitempty"`
	PhotoKey          string     `json:"-"`
	CreatedAt         time.Time  `json:"-"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type UserTarget struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"uniqueIndex;not null" json:"-"`
	CurrentWeight float64   `json:"current_weight"` // kg
	TargetWeight  float64   `json:"target_weight"`  // kg
	DurationWeeks int       `json:"duration_weeks"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
