package services

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
)

type Schedules struct {
	Todo             string
	FoodReminder     string
	ExerciseReminder string
	WaterReminder    string
}

// Scheduler runs the batch jobs on cron schedules evaluated in a fixed zone.
type Scheduler struct {
	cron *cron.Cron
	jobs *BatchJobs
	log  *log.Logger
	// ctx is the parent of every job run; cancelling it aborts in-flight batches.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(jobs *BatchJobs, loc *time.Location, sched Schedules, logger *log.Logger) (*Scheduler, error) {
	if loc == nil {
		return nil, fmt.Errorf("scheduler: time zone is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		jobs:   jobs,
		log:    logger,
		ctx:    ctx,
		cancel: cancel,
	}

	entries := []struct {
		name string
		spec string
		run  func(context.Context) (BatchOutcome, error)
	}{
		{"todo", sched.Todo, jobs.RunTodoBatch},
		{"food-reminder", sched.FoodReminder, reminderJob(jobs, FoodReminder)},
		{"exercise-reminder", sched.ExerciseReminder, reminderJob(jobs, ExerciseReminder)},
		{"water-reminder", sched.WaterReminder, reminderJob(jobs, WaterReminder)},
	}
	for _, e := range entries {
		e := e
		if _, err := s.cron.AddFunc(e.spec, func() { s.runJob(e.name, e.run) }); err != nil {
			cancel()
			return nil, fmt.Errorf("schedule %s %q: %w", e.name, e.spec, err)
		}
	}
	return s, nil
}

func reminderJob(jobs *BatchJobs, r Reminder) func(context.Context) (BatchOutcome, error) {
	return func(ctx context.Context) (BatchOutcome, error) { return jobs.RunReminder(ctx, r) }
}

func (s *Scheduler) runJob(name string, run func(context.Context) (BatchOutcome, error)) {
	s.log.Info("job started", "job", name)
	if _, err := run(s.ctx); err != nil {
		s.log.Error("job failed", "job", name, "err", err)
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop prevents new runs and cancels running ones, then waits for them.
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	s.cancel()
	<-done.Done()
}

// Entries exposes the next run time of each job for diagnostics.
func (s *Scheduler) Entries() []cron.Entry { return s.cron.Entries() }
