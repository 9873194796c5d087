package services

import (
	"context"
	"strconv"
	"time"

	"dietica/models"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

const (
	NotificationTodo     = "todo"
	NotificationReminder = "reminder"
)

// NotificationService stores in-app notifications and streams them to open
// websockets. Push delivery for batch runs goes through the Dispatcher.
type NotificationService struct {
	db  *gorm.DB
	hub *RealtimeHub
	log *log.Logger
	now func() time.Time
}

func NewNotificationService(db *gorm.DB, hub *RealtimeHub, logger *log.Logger) *NotificationService {
	return &NotificationService{db: db, hub: hub, log: logger, now: time.Now}
}

// Emit persists a notification and broadcasts it. hub may be nil.
func (s *NotificationService) Emit(ctx context.Context, userID uint, typ, title, message string) (*models.Notification, error) {
	n := &models.Notification{UserID: userID, Type: typ, Title: title, Message: message, CreatedAt: s.now().UTC()}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, dbErr("create notification", err)
	}
	if s.hub != nil {
		s.hub.Broadcast(userID, map[string]any{
			"kind":         "notification.created",
			"notification": n,
			"id":           strconv.FormatUint(uint64(n.ID), 10),
		})
	}
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var out []models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, dbErr("list notifications", err)
	}
	return out, nil
}
