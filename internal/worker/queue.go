// Package worker runs compose and encode jobs on a fixed set of goroutines
// so callers suspend instead of blocking an interactive thread.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/photoframe/internal/errs"
	"github.com/ivlev/photoframe/internal/logx"
)

// ErrClosed is returned by Do after Close.
var ErrClosed = errors.New("worker queue closed")

// Job is a unit of work. It must honor ctx.
type Job func(ctx context.Context) error

type task struct {
	ctx  context.Context
	job  Job
	done chan error
}

// Queue runs jobs on Workers goroutines in submission order.
type Queue struct {
	tasks chan task
	g     errgroup.Group
	mu    sync.RWMutex
	done  bool
	log   zerolog.Logger
}

// New starts a queue with the given number of workers (at least one).
func New(workers int, log zerolog.Logger) *Queue {
	q := &Queue{
		tasks: make(chan task),
		log:   logx.Component(log, "worker"),
	}
	for w := 0; w < max(1, workers); w++ {
		q.g.Go(func() error {
			for t := range q.tasks {
				t.done <- q.run(t)
			}
			return nil
		})
	}
	return q
}

func (q *Queue) run(t task) (err error) {
	if err := t.ctx.Err(); err != nil {
		return errs.New(errs.KindCancelled, "queued job", err)
	}
	defer func() {
		if r := recover(); r != nil {
			l := logx.FromCtx(t.ctx, q.log)
			l.Error().Interface("panic", r).Msg("job panicked")
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return t.job(t.ctx)
}

// Do runs job on a worker and waits for it. A job whose context ends before
// a worker picks it up never runs; once started, Do returns only after the
// job has returned, whatever happens to ctx.
func (q *Queue) Do(ctx context.Context, job Job) error {
	q.mu.RLock()
	if q.done {
		q.mu.RUnlock()
		return ErrClosed
	}
	t := task{ctx: ctx, job: job, done: make(chan error, 1)}
	select {
	case q.tasks <- t:
		q.mu.RUnlock()
	case <-ctx.Done():
		q.mu.RUnlock()
		return errs.New(errs.KindCancelled, "queued job", ctx.Err())
	}
	return <-t.done
}

// Close stops accepting jobs and waits for running ones to finish.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.done {
		q.mu.Unlock()
		return nil
	}
	q.done = true
	close(q.tasks)
	q.mu.Unlock()
	return q.g.Wait()
}
