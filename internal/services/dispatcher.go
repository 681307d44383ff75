// Package services – Dispatcher
//
// This file implements fire-and-forget execution for notifications whose
// outcome must never gate a decision: admin review cards, submitter
// acknowledgements, and rejection notices. Errors are logged, not surfaced.
//
// AsyncDispatcher queues jobs into a bounded buffer drained by a fixed set of
// workers; Dispatch never blocks and drops (with a log line and a metric) when
// the buffer is full. InlineDispatcher runs the job on the caller's goroutine
// and is used in tests and when no workers are configured.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Job is a best-effort side effect.
type Job func(ctx context.Context) error

// Dispatcher runs best-effort jobs. Implementations must not block the caller
// on the job's outcome.
type Dispatcher interface {
	Dispatch(name string, job Job)
}

type queuedJob struct {
	name string
	job  Job
}

// AsyncDispatcher is a bounded, non-blocking Dispatcher. Call Run to start
// the workers; jobs dispatched before Run are kept in the buffer.
type AsyncDispatcher struct {
	queue   chan queuedJob
	workers int
	timeout time.Duration
	logger  zerolog.Logger
}

// NewAsyncDispatcher returns a dispatcher with a buffer of size queueSize,
// workers concurrent workers, and a per-job timeout (<= 0 means none).
func NewAsyncDispatcher(queueSize, workers int, timeout time.Duration) *AsyncDispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}
	return &AsyncDispatcher{
		queue:   make(chan queuedJob, queueSize),
		workers: workers,
		timeout: timeout,
		logger:  log.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch enqueues job without blocking. A full queue drops the job.
func (d *AsyncDispatcher) Dispatch(name string, job Job) {
	select {
	case d.queue <- queuedJob{name: name, job: job}:
	default:
		dispatchDropped.WithLabelValues(name).Inc()
		d.logger.Warn().Str("job", name).Msg("dispatch queue full, job dropped")
	}
}

// Run drains the queue until ctx is cancelled. Jobs still queued at that
// point are discarded.
func (d *AsyncDispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case qj := <-d.queue:
					runJob(ctx, d.logger, d.timeout, qj.name, qj.job)
				}
			}
		})
	}
	return g.Wait()
}

// Pending returns the number of queued jobs.
func (d *AsyncDispatcher) Pending() int { return len(d.queue) }

// InlineDispatcher runs each job synchronously on the caller's goroutine.
type InlineDispatcher struct {
	Timeout time.Duration
}

// Dispatch runs job immediately and logs its error.
func (d InlineDispatcher) Dispatch(name string, job Job) {
	runJob(context.Background(), log.With().Str("component", "dispatcher").Logger(), d.Timeout, name, job)
}

func runJob(ctx context.Context, lg zerolog.Logger, timeout time.Duration, name string, job Job) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	defer func() {
		if rec := recover(); rec != nil {
			lg.Error().Interface("panic", rec).Str("job", name).Msg("dispatch job panicked")
		}
	}()
	if err := job(ctx); err != nil {
		lg.Warn().Err(err).Str("job", name).Msg("best-effort job failed")
	}
}
