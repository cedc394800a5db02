// Package scheduler is the cron-like driver for the aggregator, domain
// cache refresh, rule learner, and janitor jobs. Each job is serialised
// against itself; an overrun causes the next tick to be skipped rather
// than queued.
package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/trustscore/trustscored/internal/server"
)

// Job is one named, independently-ticked unit of work. Run should return
// a short textual result describing what happened, consumed by the
// operational layer (the admin "trigger a one-off run" surface).
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (string, error)

	running atomic.Bool
}

// tick executes Run unless a previous invocation of the same job is still
// in flight, in which case it logs and returns immediately.
func (j *Job) tick(ctx context.Context, logger *slog.Logger) {
	if !j.running.CompareAndSwap(false, true) {
		logger.Warn("scheduler: tick skipped, previous run still in flight", "job", j.Name)
		return
	}
	defer j.running.Store(false)

	start := time.Now()
	result, err := j.Run(ctx)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("scheduler: job failed", "job", j.Name, "elapsed", elapsed, "err", err)
		return
	}
	logger.Info("scheduler: job completed", "job", j.Name, "elapsed", elapsed, "result", result)
}

// TriggerNow runs a job immediately, outside its regular interval,
// returning its textual result. Used by the admin "trigger a one-off run"
// operation. It still respects the job's own single-instance guarantee.
func (j *Job) TriggerNow(ctx context.Context) (string, error) {
	if !j.running.CompareAndSwap(false, true) {
		return "", errJobAlreadyRunning(j.Name)
	}
	defer j.running.Store(false)
	return j.Run(ctx)
}

// Scheduler owns a fixed set of jobs and drives each on its own ticker,
// each wrapped in server.RunWithRecovery so a panic in one job's Run does
// not take down the others.
type Scheduler struct {
	jobs   []*Job
	logger *slog.Logger
}

func New(logger *slog.Logger, jobs ...*Job) *Scheduler {
	return &Scheduler{jobs: jobs, logger: logger}
}

// Start launches one supervised goroutine per job. It returns immediately;
// callers cancel ctx to stop every job.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		job := job
		go server.RunWithRecovery(ctx, s.logger, job.Name, func(ctx context.Context) {
			ticker := time.NewTicker(job.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					job.tick(ctx, s.logger)
				}
			}
		})
	}
}

// Job looks up a registered job by name, for the admin surface's
// trigger-by-name operations.
func (s *Scheduler) Job(name string) (*Job, bool) {
	for _, j := range s.jobs {
		if j.Name == name {
			return j, true
		}
	}
	return nil, false
}

type jobRunningError struct{ name string }

func (e jobRunningError) Error() string {
	return "scheduler: job " + e.name + " is already running"
}

func errJobAlreadyRunning(name string) error {
	return jobRunningError{name: name}
}
