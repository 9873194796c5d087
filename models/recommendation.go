package models

import "time"

// Recommendation is one generated to-do list. Rows are append-only; the newest
// row per user is the current one.
type Recommendation struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	UserID              uint      `gorm:"index:idx_rec_user_created,priority:1;not null" json:"-"`
	FoodTitle           string    `json:"food_title"`
	FoodDescription     string    `gorm:"type:text" json:"food_description"`
	ExerciseTitle       string    `json:"exercise_title"`
	ExerciseDescription string    `gorm:"type:text" json:"exercise_description"`
	WaterTitle          string    `json:"water_title"`
	WaterDescription    string    `gorm:"type:text" json:"water_description"`
	CreatedAt           time.Time `gorm:"index:idx_rec_user_created,priority:2" json:"created_at"`
}

type ChatLog struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    uint      `gorm:"index:idx_chat_user_time,priority:1;not null" json:"-"`
	Message   string    `gorm:"type:text" json:"message"`
	Reply     string    `gorm:"type:text" json:"reply"`
	RepliedAt time.Time `gorm:"index:idx_chat_user_time,priority:2" json:"replied_at"`
}

// Notification is an in-app notification; it is also streamed over the realtime hub.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"-"`
	Type      string    `gorm:"size:20" json:"type"` // "todo" | "reminder"
	Title     string    `json:"title"`
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
