package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"dietica/models"

	"github.com/charmbracelet/log"
)

const (
	todoReadyTitle = "Here's your To Do list for today"
	todoReadyBody  = "Keep your body healthy and happy today!"
)

// NotificationEmitter records an in-app notification for a user.
type NotificationEmitter interface {
	Emit(ctx context.Context, userID uint, typ, title, message string) (*models.Notification, error)
}

// TodoService runs the per-user pipeline: facts, aggregation, prompt,
// generation, persistence and notification, strictly in that order.
type TodoService struct {
	store  PipelineStore
	agg    *Aggregator
	rec    *RecommendationService
	notes  NotificationEmitter
	maxAge time.Duration
	log    *log.Logger
	now    func() time.Time
}

func NewTodoService(store PipelineStore, agg *Aggregator, rec *RecommendationService, notes NotificationEmitter, maxAge time.Duration, logger *log.Logger) *TodoService {
	return &TodoService{store: store, agg: agg, rec: rec, notes: notes, maxAge: maxAge, log: logger, now: time.Now}
}

// BuildFacts loads and aggregates everything a prompt needs for one user.
func (s *TodoService) BuildFacts(ctx context.Context, userID uint) (PromptFacts, error) {
	var f PromptFacts

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return f, err
	}
	f.Name = strings.TrimSpace(user.FirstName + " " + user.LastName)

	if f.Profile, err = s.store.GetProfile(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return f, PreconditionMissing("profile", "please complete your physical information in profile")
		}
		return f, err
	}
	if f.Target, err = s.store.GetTarget(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return f, PreconditionMissing("target", "please complete your weight target and duration")
		}
		return f, err
	}

	w := TrailingWindow(s.now(), WindowDays)
	for _, k := range []struct {
		kind LogKind
		dst  *[]DailySummary
	}{{KindFood, &f.Food}, {KindWater, &f.Water}, {KindExercise, &f.Exercise}} {
		entries, err := s.store.QueryLogs(ctx, userID, k.kind, w)
		if err != nil {
			return f, err
		}
		*k.dst = s.agg.Aggregate(entries)
	}
	return f, nil
}

// Process generates and stores a new recommendation for userID.
func (s *TodoService) Process(ctx context.Context, userID uint) (*models.Recommendation, error) {
	facts, err := s.BuildFacts(ctx, userID)
	if err != nil {
		return nil, err
	}
	prompt, err := CompileRecommendationPrompt(facts)
	if err != nil {
		return nil, err
	}
	rec, err := s.rec.Generate(ctx, userID, prompt)
	if err != nil {
		return nil, err
	}

	if s.notes != nil {
		if _, err := s.notes.Emit(ctx, userID, NotificationTodo, todoReadyTitle, todoReadyBody); err != nil {
			s.log.Warn("todo notification not stored", "user", userID, "err", err)
		}
	}
	return rec, nil
}

// Current returns the latest recommendation while it is younger than the
// configured max age, and generates a new one otherwise.
func (s *TodoService) Current(ctx context.Context, userID uint) (*models.Recommendation, error) {
	latest, err := s.store.LatestRecommendation(ctx, userID)
	switch {
	case err == nil:
		if s.now().Sub(latest.CreatedAt) <= s.maxAge {
			return latest, nil
		}
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}
	return s.Process(ctx, userID)
}

func (s *TodoService) History(ctx context.Context, userID uint, limit int) ([]models.Recommendation, error) {
	return s.store.ListRecommendations(ctx, userID, limit)
}
