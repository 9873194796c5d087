package services

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

type Reminder struct {
	Name  string
	Title string
	Body  string
}

var (
	FoodReminder     = Reminder{Name: "food", Title: "Don't forget to input your food!", Body: "We need the data to help you!"}
	ExerciseReminder = Reminder{Name: "exercise", Title: "Do your daily routine!", Body: "Remember to log your exercise activities!"}
	WaterReminder    = Reminder{Name: "water", Title: "Hey, don't forget to drink water today!", Body: "Your body is 70% water, so make sure to hydrate!"}
)

// TargetLister finds recently active users with a push endpoint.
type TargetLister interface {
	ListActiveDispatchTargets(ctx context.Context, since time.Time, limit int) ([]DispatchTarget, error)
}

type BatchJobsConfig struct {
	ActiveWindow   time.Duration
	TodoBatchLimit int
}

// BatchJobs are the scheduled fan-outs over active users.
type BatchJobs struct {
	targets  TargetLister
	todo     *TodoService
	push     Notifier
	notes    NotificationEmitter
	todoPool *Dispatcher
	pushPool *Dispatcher
	cfg      BatchJobsConfig
	log      *log.Logger
	now      func() time.Time
}

func NewBatchJobs(targets TargetLister, todo *TodoService, push Notifier, notes NotificationEmitter,
	todoPool, pushPool *Dispatcher, cfg BatchJobsConfig, logger *log.Logger) *BatchJobs {
	return &BatchJobs{
		targets:  targets,
		todo:     todo,
		push:     push,
		notes:    notes,
		todoPool: todoPool,
		pushPool: pushPool,
		cfg:      cfg,
		log:      logger,
		now:      time.Now,
	}
}

// RunTodoBatch generates a recommendation for the most recently active users
// and pushes a notification to each one that succeeded.
func (j *BatchJobs) RunTodoBatch(ctx context.Context) (BatchOutcome, error) {
	targets, err := j.targets.ListActiveDispatchTargets(ctx, j.now().Add(-j.cfg.ActiveWindow), j.cfg.TodoBatchLimit)
	if err != nil {
		return BatchOutcome{}, err
	}
	out := j.todoPool.Run(ctx, targets, func(ctx context.Context, t DispatchTarget) error {
		if _, err := j.todo.Process(ctx, t.UserID); err != nil {
			return err
		}
		return j.push.Send(ctx, t.Token, todoReadyTitle, todoReadyBody)
	})
	j.log.Info("todo batch", "run", out.RunID, "concurrency", j.todoPool.Concurrency(), "generated", out.Succeeded, "failed", out.Failed)
	return out, nil
}

// RunReminder pushes r to every active user and records it in-app.
func (j *BatchJobs) RunReminder(ctx context.Context, r Reminder) (BatchOutcome, error) {
	targets, err := j.targets.ListActiveDispatchTargets(ctx, j.now().Add(-j.cfg.ActiveWindow), 0)
	if err != nil {
		return BatchOutcome{}, err
	}
	out := j.pushPool.Run(ctx, targets, func(ctx context.Context, t DispatchTarget) error {
		if err := j.push.Send(ctx, t.Token, r.Title, r.Body); err != nil {
			return err
		}
		if j.notes != nil {
			if _, err := j.notes.Emit(ctx, t.UserID, NotificationReminder, r.Title, r.Body); err != nil {
				j.log.Debug("reminder not stored", "user", t.UserID, "err", err)
			}
		}
		return nil
	})
	j.log.Info("reminder batch", "reminder", r.Name, "run", out.RunID, "concurrency", j.pushPool.Concurrency(), "sent", out.Succeeded, "failed", out.Failed)
	return out, nil
}
