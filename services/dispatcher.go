package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DispatchTarget is one unit of batch work: a user and the push endpoint to
// notify when their work is done.
type DispatchTarget struct {
	UserID uint
	Token  string
}

type TargetState int32

const (
	TargetPending TargetState = iota
	TargetInFlight
	TargetSucceeded
	TargetFailed
)

func (s TargetState) String() string {
	switch s {
	case TargetPending:
		return "pending"
	case TargetInFlight:
		return "in_flight"
	case TargetSucceeded:
		return "succeeded"
	case TargetFailed:
		return "failed"
	}
	return fmt.Sprintf("TargetState(%d)", int32(s))
}

type TargetResult struct {
	Target DispatchTarget
	State  TargetState
	Err    error
}

// BatchOutcome is the in-memory record of one batch run.
type BatchOutcome struct {
	RunID     uuid.UUID
	Total     int
	Succeeded int
	Failed    int
	Results   []TargetResult
	Elapsed   time.Duration
}

// TargetOp is the per-target operation. It should honour ctx so that work stops
// at the deadline; the dispatcher stops waiting for it either way.
type TargetOp func(ctx context.Context, t DispatchTarget) error

// Dispatcher runs a TargetOp over many targets with at most K in flight.
type Dispatcher struct {
	limit   int
	timeout time.Duration
	log     *log.Logger
}

// NewDispatcher returns a dispatcher with concurrency K. A zero timeout means
// targets run until the batch context ends.
func NewDispatcher(concurrency int, perTargetTimeout time.Duration, logger *log.Logger) (*Dispatcher, error) {
	if concurrency < 1 {
		return nil, fmt.Errorf("dispatcher: concurrency must be at least 1, got %d", concurrency)
	}
	if perTargetTimeout < 0 {
		return nil, fmt.Errorf("dispatcher: negative per-target timeout %s", perTargetTimeout)
	}
	return &Dispatcher{limit: concurrency, timeout: perTargetTimeout, log: logger}, nil
}

func (d *Dispatcher) Concurrency() int { return d.limit }

// Run blocks until every target has reached a terminal state. A failing or
// panicking target never affects the others. A target still running at its
// deadline is recorded as failed and frees its slot. Targets not yet started
// when ctx is cancelled fail with ctx's error.
func (d *Dispatcher) Run(ctx context.Context, targets []DispatchTarget, op TargetOp) BatchOutcome {
	started := time.Now()
	out := BatchOutcome{
		RunID:   uuid.New(),
		Total:   len(targets),
		Results: make([]TargetResult, len(targets)),
	}
	for i, t := range targets {
		out.Results[i] = TargetResult{Target: t, State: TargetPending}
	}

	var succeeded, failed atomic.Int64
	// The group has no derived context: one target's error must not cancel the rest.
	var g errgroup.Group
	g.SetLimit(d.limit)

	for i := range targets {
		i := i
		g.Go(func() error {
			res := &out.Results[i]
			if err := ctx.Err(); err != nil {
				res.State, res.Err = TargetFailed, err
				failed.Add(1)
				return nil
			}
			res.State = TargetInFlight

			if err := d.runOne(ctx, res.Target, op); err != nil {
				res.State, res.Err = TargetFailed, err
				failed.Add(1)
				d.log.Debug("target failed", "run", out.RunID, "user", res.Target.UserID, "err", err)
				return nil
			}
			res.State = TargetSucceeded
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	out.Succeeded = int(succeeded.Load())
	out.Failed = int(failed.Load())
	out.Elapsed = time.Since(started)
	d.log.Info("batch finished",
		"run", out.RunID, "total", out.Total,
		"succeeded", out.Succeeded, "failed", out.Failed,
		"elapsed", out.Elapsed.Round(time.Millisecond))
	return out
}

// runOne stops waiting when ctx ends even if op ignores it. An abandoned op
// keeps running in its own goroutine until it returns; its result is dropped.
func (d *Dispatcher) runOne(ctx context.Context, t DispatchTarget, op TargetOp) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("target %d: panic: %v", t.UserID, r)
			}
		}()
		done <- op(ctx, t)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("target %d: %w", t.UserID, ctx.Err())
	}
}

// IsTimeout reports whether a target result failed on its deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
