package queue

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"tronscan-crawler/internal/domain"
)

// MemoryQueue is an in-process Queue. Jobs are lost on exit.
type MemoryQueue struct {
	*runner

	now    func() time.Time
	jobsMu sync.Mutex
	seq    uint64
	kinds  map[domain.JobKind]*memoryKind
}

// memoryKind holds the jobs of one kind.
type memoryKind struct {
	delayed delayedHeap
	ready   readyHeap
	counts  Counts // Active, Complete, Failed
}

type entry struct {
	job *Job
	seq uint64
}

// NewMemoryQueue creates an in-process queue.
func NewMemoryQueue(opts ...Option) *MemoryQueue {
	o := buildOptions(opts)
	q := &MemoryQueue{
		now:   o.now,
		kinds: make(map[domain.JobKind]*memoryKind),
	}
	q.runner = newRunner(q, o, defaultIdleWait)
	return q
}

// Compile-time interface check.
var _ Queue = (*MemoryQueue)(nil)

func (q *MemoryQueue) kind(kind domain.JobKind) *memoryKind {
	k, ok := q.kinds[kind]
	if !ok {
		k = &memoryKind{}
		q.kinds[kind] = k
	}
	return k
}

// Create stores a job to be delivered at or after scheduledAt.
func (q *MemoryQueue) Create(_ context.Context, kind domain.JobKind, payload domain.JobPayload, priority Priority, scheduledAt time.Time) error {
	if !kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if q.isClosed() {
		return ErrClosed
	}

	job := &Job{
		ID:          uuid.NewString(),
		Kind:        kind,
		Payload:     payload,
		Priority:    priority,
		ScheduledAt: scheduledAt,
		CreatedAt:   q.now(),
	}

	q.jobsMu.Lock()
	q.seq++
	heap.Push(&q.kind(kind).delayed, &entry{job: job, seq: q.seq})
	q.jobsMu.Unlock()

	q.emit(EventEnqueued, job, nil)
	q.notify(kind)
	return nil
}

// Process starts delivering jobs of kind to handler.
func (q *MemoryQueue) Process(kind domain.JobKind, concurrency int, handler Handler) error {
	return q.process(kind, concurrency, handler)
}

// Shutdown stops delivery and waits up to timeout for in-flight jobs.
func (q *MemoryQueue) Shutdown(timeout time.Duration) error {
	return q.shutdown(timeout)
}

// Stats returns job counts per kind.
func (q *MemoryQueue) Stats(_ context.Context) (Stats, error) {
	q.jobsMu.Lock()
	defer q.jobsMu.Unlock()

	now := q.now()
	stats := make(Stats, len(q.kinds))
	for kind, k := range q.kinds {
		c := k.counts
		c.Inactive = int64(k.ready.Len())
		for _, e := range k.delayed {
			if e.job.ScheduledAt.After(now) {
				c.Delayed++
			} else {
				c.Inactive++
			}
		}
		stats[kind] = c
	}
	return stats, nil
}

// Pending returns the number of jobs of kind not yet delivered.
func (q *MemoryQueue) Pending(kind domain.JobKind) int {
	q.jobsMu.Lock()
	defer q.jobsMu.Unlock()

	k, ok := q.kinds[kind]
	if !ok {
		return 0
	}
	return k.delayed.Len() + k.ready.Len()
}

func (q *MemoryQueue) claim(_ context.Context, kind domain.JobKind) (*Job, time.Duration, error) {
	q.jobsMu.Lock()
	defer q.jobsMu.Unlock()

	k := q.kind(kind)
	now := q.now()
	for k.delayed.Len() > 0 && !k.delayed[0].job.ScheduledAt.After(now) {
		heap.Push(&k.ready, heap.Pop(&k.delayed))
	}

	if k.ready.Len() > 0 {
		e := heap.Pop(&k.ready).(*entry)
		e.job.Attempts++
		k.counts.Active++
		return e.job, 0, nil
	}
	if k.delayed.Len() > 0 {
		return nil, k.delayed[0].job.ScheduledAt.Sub(now), nil
	}
	return nil, defaultIdleWait, nil
}

func (q *MemoryQueue) finish(_ context.Context, job *Job, handlerErr error) error {
	q.jobsMu.Lock()
	defer q.jobsMu.Unlock()

	k := q.kind(job.Kind)
	k.counts.Active--
	if handlerErr != nil {
		k.counts.Failed++
	} else {
		k.counts.Complete++
	}
	return nil
}

// delayedHeap orders entries by scheduled time.
type delayedHeap []*entry

func (h delayedHeap) Len() int { return len(h) }
func (h delayedHeap) Less(i, j int) bool {
	if !h[i].job.ScheduledAt.Equal(h[j].job.ScheduledAt) {
		return h[i].job.ScheduledAt.Before(h[j].job.ScheduledAt)
	}
	return h[i].seq < h[j].seq
}
func (h delayedHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *delayedHeap) Push(x interface{}) { *h = append(*h, x.(*entry)) }
func (h *delayedHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// readyHeap orders due entries by priority, then scheduled time.
type readyHeap []*entry

func (h readyHeap) Len() int { return len(h) }
func (h readyHeap) Less(i, j int) bool {
	if h[i].job.Priority != h[j].job.Priority {
		return h[i].job.Priority > h[j].job.Priority
	}
	if !h[i].job.ScheduledAt.Equal(h[j].job.ScheduledAt) {
		return h[i].job.ScheduledAt.Before(h[j].job.ScheduledAt)
	}
	return h[i].seq < h[j].seq
}
func (h readyHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *readyHeap) Push(x interface{}) { *h = append(*h, x.(*entry)) }
func (h *readyHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
