// Package scheduler runs recurring-transaction generation on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"fintrack/internal/log"
	"fintrack/internal/services"
)

// Generator is the work the scheduler triggers.
// *services.RecurringProcessor implements it.
type Generator interface {
	ProcessDue(ctx context.Context, now time.Time) (services.GenerationResult, error)
}

// Scheduler invokes a Generator on a cron spec. Overlapping runs are
// skipped rather than queued.
type Scheduler struct {
	cron    *cron.Cron
	gen     Generator
	ctx     context.Context
	timeout time.Duration
	now     func() time.Time
	logger  *log.Logger

	mu     sync.Mutex
	status RunStatus
}

// RunStatus describes the most recent run.
type RunStatus struct {
	At     time.Time
	Result services.GenerationResult
	Err    error
	Runs   int
}

// New returns a scheduler whose jobs run under ctx. Each run is bounded by
// timeout when it is positive.
func New(ctx context.Context, gen Generator, timeout time.Duration) *Scheduler {
	logger := log.Default(log.ComponentScheduler)
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{logger}),
			cron.SkipIfStillRunning(cronLogger{logger}),
		)),
		gen:     gen,
		ctx:     ctx,
		timeout: timeout,
		now:     time.Now,
		logger:  logger,
	}
}

// Register schedules generation on spec, a standard five-field cron
// expression or a descriptor such as "@daily".
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { _, _ = s.RunNow() }); err != nil {
		return fmt.Errorf("register recurring generation %q: %w", spec, err)
	}
	s.logger.Info("Recurring generation scheduled", "schedule", spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop stops scheduling and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running job: %w", ctx.Err())
	}
}

// RunNow generates immediately, outside the schedule.
func (s *Scheduler) RunNow() (services.GenerationResult, error) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := s.now()
	res, err := s.gen.ProcessDue(ctx, start)

	s.mu.Lock()
	s.status = RunStatus{At: start, Result: res, Err: err, Runs: s.status.Runs + 1}
	s.mu.Unlock()

	if err != nil {
		s.logger.ErrorContext(ctx, "Recurring generation failed", log.FieldOperation, log.OpGenerate, log.FieldError, err)
		return res, err
	}
	s.logger.InfoContext(ctx, "Recurring generation finished",
		log.FieldCreated, res.Created,
		"failed_rules", len(res.Errors),
		log.FieldDurationHuman, time.Since(start).String())
	return res, nil
}

// LastRun reports the most recent run, scheduled or manual.
func (s *Scheduler) LastRun() RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// cronLogger adapts log.Logger to cron.Logger.
type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, log.FieldError, err)...)
}
