package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"dietica/models"

	"gorm.io/gorm"
)

// PipelineStore is the persistence the recommendation pipeline reads and writes.
type PipelineStore interface {
	RecommendationStore
	GetUser(ctx context.Context, userID uint) (*models.User, error)
	GetProfile(ctx context.Context, userID uint) (*models.UserProfile, error)
	GetTarget(ctx context.Context, userID uint) (*models.UserTarget, error)
	QueryLogs(ctx context.Context, userID uint, kind LogKind, w Window) ([]LogEntry, error)
	LatestRecommendation(ctx context.Context, userID uint) (*models.Recommendation, error)
	ListRecommendations(ctx context.Context, userID uint, limit int) ([]models.Recommendation, error)
	ListActiveDispatchTargets(ctx context.Context, since time.Time, limit int) ([]DispatchTarget, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// dbErr maps gorm errors onto the package's error taxonomy.
func dbErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return transport(op, err)
}

func (s *GormStore) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, userID).Error; err != nil {
		return nil, dbErr("get user", err)
	}
	return &u, nil
}

func (s *GormStore) GetProfile(ctx context.Context, userID uint) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, dbErr("get profile", err)
	}
	return &p, nil
}

func (s *GormStore) GetTarget(ctx context.Context, userID uint) (*models.UserTarget, error) {
	var t models.UserTarget
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&t).Error; err != nil {
		return nil, dbErr("get target", err)
	}
	return &t, nil
}

// logCaps bounds how many entries of a kind feed one prompt. Water is uncapped
// because many small entries per day are normal.
var logCaps = map[LogKind]int{
	KindFood:     50,
	KindExercise: 50,
}

// QueryLogs returns the user's entries of one kind inside w, oldest first.
// Capped kinds keep the most recent entries.
func (s *GormStore) QueryLogs(ctx context.Context, userID uint, kind LogKind, w Window) ([]LogEntry, error) {
	q := s.db.WithContext(ctx).
		Where("user_id = ? AND logged_at > ? AND logged_at <= ?", userID, w.Start.UTC(), w.End.UTC())
	limit := logCaps[kind]
	if limit > 0 {
		q = q.Order("logged_at DESC, id DESC").Limit(limit)
	} else {
		q = q.Order("logged_at ASC, id ASC")
	}

	switch kind {
	case KindFood:
		var rows []models.FoodLog
		if err := q.Find(&rows).Error; err != nil {
			return nil, dbErr("query food logs", err)
		}
		slices.Reverse(rows)
		return FoodEntries(rows), nil
	case KindWater:
		var rows []models.WaterLog
		if err := q.Find(&rows).Error; err != nil {
			return nil, dbErr("query water logs", err)
		}
		return WaterEntries(rows), nil
	case KindExercise:
		var rows []models.ExerciseLog
		if err := q.Find(&rows).Error; err != nil {
			return nil, dbErr("query exercise logs", err)
		}
		slices.Reverse(rows)
		return ExerciseEntries(rows), nil
	}
	return nil, invalidf("unknown log kind %q", kind)
}

func (s *GormStore) CreateRecommendation(ctx context.Context, rec *models.Recommendation) error {
	return dbErr("create recommendation", s.db.WithContext(ctx).Create(rec).Error)
}

func (s *GormStore) LatestRecommendation(ctx context.Context, userID uint) (*models.Recommendation, error) {
	var r models.Recommendation
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&r).Error
	if err != nil {
		return nil, dbErr("latest recommendation", err)
	}
	return &r, nil
}

func (s *GormStore) ListRecommendations(ctx context.Context, userID uint, limit int) ([]models.Recommendation, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	var out []models.Recommendation
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, dbErr("list recommendations", err)
	}
	return out, nil
}

// ListActiveDispatchTargets returns one target per user whose enabled device
// was refreshed after since, most recently active first. limit <= 0 means no limit.
func (s *GormStore) ListActiveDispatchTargets(ctx context.Context, since time.Time, limit int) ([]DispatchTarget, error) {
	var devices []models.UserDevice
	err := s.db.WithContext(ctx).
		Where("enabled = ? AND updated_at > ? AND endpoint_arn <> ''", true, since.UTC()).
		Order("updated_at DESC, id DESC").
		Find(&devices).Error
	if err != nil {
		return nil, dbErr("list active devices", err)
	}

	seen := make(map[uint]bool, len(devices))
	targets := make([]DispatchTarget, 0, len(devices))
	for _, d := range devices {
		if seen[d.UserID] {
			continue
		}
		seen[d.UserID] = true
		targets = append(targets, DispatchTarget{UserID: d.UserID, Token: d.EndpointARN})
		if limit > 0 && len(targets) == limit {
			break
		}
	}
	return targets, nil
}
