// Package jobs runs detached background work on a fixed worker pool. A task
// accepted by Submit runs to completion regardless of what happens to the
// request that scheduled it.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"
)

// ErrClosed is returned by Submit once the runner has shut down.
var ErrClosed = errors.New("job runner closed")

// Task is one unit of background work.
type Task func(ctx context.Context)

// Config controls pool width and backlog depth.
type Config struct {
	Workers   int // goroutines consuming the queue
	QueueSize int // buffered backlog before Submit blocks
}

// Runner executes tasks on a fixed pool of workers.
type Runner struct {
	cfg   Config
	tasks chan Task
	wg    sync.WaitGroup
	log   zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// NewRunner constructs a Runner. Zero config values fall back to defaults.
func NewRunner(cfg Config, log zerolog.Logger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	return &Runner{cfg: cfg, tasks: make(chan Task, cfg.QueueSize), log: log}
}

// Start launches the worker pool. Tasks receive ctx; pass a context that
// outlives individual requests so scheduled work is not cancelled by a
// caller disconnecting.
func (r *Runner) Start(ctx context.Context) {
	r.log.Info().Int("workers", r.cfg.Workers).Int("queue_size", r.cfg.QueueSize).Msg("job runner starting")
	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for task := range r.tasks {
				r.run(ctx, task)
			}
		}()
	}
}

func (r *Runner) run(ctx context.Context, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("background task panicked")
		}
	}()
	task(ctx)
}

// Submit queues a task. It blocks while the backlog is full and fails once
// the runner is closed.
func (r *Runner) Submit(task Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.tasks <- task
	return nil
}

// Backlog reports the number of queued, not yet started tasks.
func (r *Runner) Backlog() int { return len(r.tasks) }

// Close stops intake and waits for queued and in-flight tasks to finish, or
// for ctx to expire. Idempotent.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.tasks)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.log.Info().Msg("job runner stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("job runner shutdown: %w", ctx.Err())
	}
}
