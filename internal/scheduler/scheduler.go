// Package scheduler runs the pipeline stages as jobs, once or on a cron schedule.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// contextual jobs accept a run context before Run
type contextual interface {
	SetContext(ctx context.Context)
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	log  zerolog.Logger

	mu      sync.RWMutex
	entries map[string]cron.EntryID
}

// New creates a new scheduler. Jobs it runs observe ctx.
func New(ctx context.Context, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:     ctx,
		log:     log.With().Str("component", "scheduler").Logger(),
		entries: make(map[string]cron.EntryID),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a job with a standard five-field cron schedule.
// Schedule examples:
//   - "0 6 * * 1"   - 6 AM every Monday
//   - "@daily"      - once a day at midnight
//   - "@every 12h"  - every 12 hours
//
// A run that is still in progress when the next one is due causes that one to be skipped.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	id, err := s.cron.AddFunc(schedule, func() {
		if err := s.RunNow(job); err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		}
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entries[job.Name()] = id
	s.mu.Unlock()

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// NextRun returns the next activation of a registered job. It reports false for unknown
// jobs and before Start.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.RLock()
	id, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return time.Time{}, false
	}
	next := s.cron.Entry(id).Next
	return next, !next.IsZero()
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	if c, ok := job.(contextual); ok {
		c.SetContext(s.ctx)
	}
	s.log.Debug().Str("job", job.Name()).Msg("Running job")
	return job.Run()
}
