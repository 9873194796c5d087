package models

import (
	"time"

	"gorm.io/gorm"
)

// FoodLog is one eaten item. Nutrients are nullable because the client may only
// know some of them.
type FoodLog struct {
	gorm.Model
	UserID         uint      `gorm:"index:idx_food_user_time,priority:1;not null" json:"-"`
	LoggedAt       time.Time `gorm:"index:idx_food_user_time,priority:2;not null" json:"logged_at"`
	Name           string    `gorm:"not null" json:"name"`
	Amount         float64   `json:"amount"`
	ServingType    string    `json:"serving_type"`
	Calories       *float64  `json:"calories"`
	Fat            *float64  `json:"fat"`             // g
	SaturatedFat   *float64  `json:"saturated_fat"`   // g
	UnsaturatedFat *float64  `json:"unsaturated_fat"` // g
	TransFat       *float64  `json:"trans_fat"`       // g
	Cholesterol    *float64  `json:"cholesterol"`     // mg
	Sodium         *float64  `json:"sodium"`          // mg
	Carbs          *float64  `json:"carbs"`           // g
	Protein        *float64  `json:"protein"`         // g
	Sugar          *float64  `json:"sugar"`           // g
	Fiber          *float64  `json:"fiber"`           // g
	Warnings       string    `gorm:"type:text" json:"warnings,omitempty"`
}

type WaterLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index:idx_water_user_time,priority:1;not null" json:"-"`
	LoggedAt  time.Time `gorm:"index:idx_water_user_time,priority:2;not null" json:"logged_at"`
	AmountML  float64   `gorm:"not null" json:"amount_ml"`
	CreatedAt time.Time `json:"created_at"`
}

type ExerciseLog struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"index:idx_exercise_user_time,priority:1;not null" json:"-"`
	LoggedAt        time.Time `gorm:"index:idx_exercise_user_time,priority:2;not null" json:"logged_at"`
	Name            string    `gorm:"not null" json:"name"`
	DurationMinutes float64   `gorm:"not null" json:"duration_minutes"`
	CreatedAt       time.Time `json:"created_at"`
}
