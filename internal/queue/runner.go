package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/observability"
)

// source is the backend half of a queue: it hands out due jobs and records
// their outcome.
type source interface {
	// claim returns the next due job of kind, or nil and how long to wait
	// before the next one becomes due.
	claim(ctx context.Context, kind domain.JobKind) (*Job, time.Duration, error)

	// finish records the outcome of a claimed job.
	finish(ctx context.Context, job *Job, handlerErr error) error
}

// runner owns the per-kind worker loops shared by every backend.
type runner struct {
	src      source
	logger   *zap.Logger
	observer Observer
	maxWait  time.Duration

	// stop ends claiming; handlers keep handlerCtx until the drain ends.
	stopCtx       context.Context
	stop          context.CancelFunc
	handlerCtx    context.Context
	cancelHandler context.CancelFunc

	mu       sync.Mutex
	closed   bool
	handlers map[domain.JobKind]bool
	wake     map[domain.JobKind]chan struct{}
	wg       sync.WaitGroup
}

func newRunner(src source, o options, maxWait time.Duration) *runner {
	stopCtx, stop := context.WithCancel(context.Background())
	handlerCtx, cancelHandler := context.WithCancel(context.Background())
	return &runner{
		src:           src,
		logger:        o.logger,
		observer:      o.observer,
		maxWait:       maxWait,
		stopCtx:       stopCtx,
		stop:          stop,
		handlerCtx:    handlerCtx,
		cancelHandler: cancelHandler,
		handlers:      make(map[domain.JobKind]bool),
		wake:          make(map[domain.JobKind]chan struct{}),
	}
}

func (r *runner) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// wakeChan returns the wake channel of kind. Caller holds r.mu.
func (r *runner) wakeChan(kind domain.JobKind) chan struct{} {
	ch, ok := r.wake[kind]
	if !ok {
		ch = make(chan struct{}, 1)
		r.wake[kind] = ch
	}
	return ch
}

// notify wakes the worker loop of kind if it is idle.
func (r *runner) notify(kind domain.JobKind) {
	r.mu.Lock()
	ch := r.wakeChan(kind)
	r.mu.Unlock()

	select {
	case ch <- struct{}{}:
	default:
	}
}

func (r *runner) process(kind domain.JobKind, concurrency int, handler Handler) error {
	if !kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if concurrency < 1 {
		return ErrInvalidConcurrency
	}
	if handler == nil {
		return fmt.Errorf("nil handler for %s", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if r.handlers[kind] {
		return fmt.Errorf("%w: %s", ErrAlreadyProcessing, kind)
	}
	r.handlers[kind] = true

	sem := semaphore.NewWeighted(int64(concurrency))
	wake := r.wakeChan(kind)

	r.wg.Add(1)
	go r.loop(kind, sem, wake, handler)
	return nil
}

func (r *runner) loop(kind domain.JobKind, sem *semaphore.Weighted, wake <-chan struct{}, handler Handler) {
	defer r.wg.Done()

	for {
		if err := sem.Acquire(r.stopCtx, 1); err != nil {
			return
		}

		job, ok := r.next(kind, wake)
		if !ok {
			sem.Release(1)
			return
		}

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer sem.Release(1)
			r.execute(job, handler)
		}()
	}
}

// next blocks until a job of kind is claimed or the runner stops.
func (r *runner) next(kind domain.JobKind, wake <-chan struct{}) (*Job, bool) {
	for {
		job, wait, err := r.src.claim(r.stopCtx, kind)
		if err != nil {
			if r.stopCtx.Err() != nil {
				return nil, false
			}
			r.logger.Warn("claim job failed", zap.String("kind", kind.String()), zap.Error(err))
			wait = r.maxWait
		}
		if job != nil {
			return job, true
		}

		if wait > r.maxWait {
			wait = r.maxWait
		}
		if wait < time.Millisecond {
			wait = time.Millisecond
		}

		timer := time.NewTimer(wait)
		select {
		case <-r.stopCtx.Done():
			timer.Stop()
			return nil, false
		case <-wake:
		case <-timer.C:
		}
		timer.Stop()
	}
}

func (r *runner) execute(job *Job, handler Handler) {
	r.emit(EventStarted, job, nil)

	start := time.Now()
	err := safeCall(r.handlerCtx, handler, job)
	observability.RecordJobProcessed(job.Kind.String(), time.Since(start).Seconds(), err)

	if err != nil {
		r.logger.Warn("job failed",
			zap.String("id", job.ID),
			zap.String("kind", job.Kind.String()),
			zap.String("target", job.Payload.Target),
			zap.Error(err))
	}

	finishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if ferr := r.src.finish(finishCtx, job, err); ferr != nil {
		r.logger.Error("finish job failed", zap.String("id", job.ID), zap.Error(ferr))
	}

	if err != nil {
		r.emit(EventFailed, job, err)
		return
	}
	r.emit(EventCompleted, job, nil)
}

// safeCall runs handler, converting a panic into an error.
func safeCall(ctx context.Context, handler Handler, job *Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return handler(ctx, job)
}

func (r *runner) emit(typ EventType, job *Job, err error) {
	if r.observer == nil {
		return
	}
	ev := Event{
		Type:     typ,
		JobID:    job.ID,
		Kind:     job.Kind,
		Target:   job.Payload.Target,
		Priority: job.Priority,
		At:       time.Now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	r.observer.OnJobEvent(ev)
}

func (r *runner) shutdown(timeout time.Duration) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.stop()
	defer r.cancelHandler()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrShutdownTimeout
	}
}
