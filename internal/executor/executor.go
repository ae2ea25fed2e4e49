// Package executor runs keyed background jobs with a concurrency bound and
// a per-job timeout.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kenyawebs/Tana-Delta/internal/apperr"
)

var (
	ErrDuplicateTask = errors.New("task already scheduled")
	ErrShuttingDown  = errors.New("executor is shutting down")
)

// Job is one unit of background work.
type Job struct {
	Key     string
	Timeout time.Duration
	Run     func(ctx context.Context) error
	// Done is called exactly once, with Run's error or with an error
	// wrapping apperr.ErrTimeout when Run outlived Timeout.
	Done func(err error)
}

type Executor struct {
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.SugaredLogger

	mu      sync.Mutex
	keys    map[string]struct{}
	closed  bool
	running sync.WaitGroup
}

// New returns an executor running at most maxConcurrent jobs at once;
// zero or less means unbounded.
func New(maxConcurrent int, log *zap.SugaredLogger) *Executor {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{ctx: ctx, cancel: cancel, log: log, keys: make(map[string]struct{})}
	if maxConcurrent > 0 {
		e.sem = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return e
}

// Submit schedules j and returns immediately. A key stays taken until its
// Run returns.
func (e *Executor) Submit(j Job) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrShuttingDown
	}
	if _, ok := e.keys[j.Key]; ok {
		e.mu.Unlock()
		return fmt.Errorf("%s: %w", j.Key, ErrDuplicateTask)
	}
	e.keys[j.Key] = struct{}{}
	e.running.Add(1)
	e.mu.Unlock()

	go e.run(j)
	return nil
}

// Pending returns the number of scheduled jobs that have not finished.
func (e *Executor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.keys)
}

func (e *Executor) run(j Job) {
	defer e.running.Done()
	defer e.release(j.Key)

	finish := func(err error) {
		if j.Done != nil {
			j.Done(err)
		}
	}

	if e.sem != nil {
		if err := e.sem.Acquire(e.ctx, 1); err != nil {
			finish(fmt.Errorf("processing interrupted: %w", err))
			return
		}
		defer e.sem.Release(1)
	}

	ctx, cancel := e.ctx, context.CancelFunc(func() {})
	if j.Timeout > 0 {
		ctx, cancel = context.WithTimeout(e.ctx, j.Timeout)
	}
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- e.safeRun(ctx, j) }()

	select {
	case err := <-done:
		if err != nil && ctx.Err() != nil {
			err = expired(ctx, j)
		}
		finish(err)
	case <-ctx.Done():
		err := expired(ctx, j)
		e.log.Warnw("job abandoned", "key", j.Key, "err", err)
		finish(err)
		<-done
	}
}

func expired(ctx context.Context, j Job) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", apperr.ErrTimeout, j.Timeout)
	}
	return fmt.Errorf("processing interrupted: %w", ctx.Err())
}

func (e *Executor) safeRun(ctx context.Context, j Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorw("job panicked", "key", j.Key, "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return j.Run(ctx)
}

func (e *Executor) release(key string) {
	e.mu.Lock()
	delete(e.keys, key)
	e.mu.Unlock()
}

// Shutdown stops accepting jobs and waits for running ones. When ctx ends
// first, running jobs are cancelled and ctx's error is returned.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	idle := make(chan struct{})
	go func() {
		e.running.Wait()
		close(idle)
	}()

	select {
	case <-idle:
		e.cancel()
		return nil
	case <-ctx.Done():
		e.cancel()
		return ctx.Err()
	}
}
