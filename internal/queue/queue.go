// Package queue delivers crawl jobs to per-kind handlers.
//
// Two backends share the same worker runner: MemoryQueue keeps jobs in
// process, PostgresQueue persists them in the crawl_jobs table so pending
// work survives restarts. Both deliver a ready job by priority first, then
// by scheduled time.
package queue

import (
	"context"
	"errors"
	"time"

	"tronscan-crawler/internal/domain"
)

// Queue errors.
var (
	// ErrClosed is returned by Create and Process after Shutdown.
	ErrClosed = errors.New("queue closed")

	// ErrShutdownTimeout is returned when in-flight jobs outlive the drain timeout.
	ErrShutdownTimeout = errors.New("queue shutdown timed out")

	// ErrAlreadyProcessing is returned when a kind already has a handler.
	ErrAlreadyProcessing = errors.New("kind already has a handler")

	// ErrInvalidConcurrency is returned for a non-positive concurrency.
	ErrInvalidConcurrency = errors.New("concurrency must be positive")

	// ErrUnknownKind is returned for a job kind no handler can serve.
	ErrUnknownKind = errors.New("unknown job kind")
)

// Priority orders ready jobs; higher runs first.
type Priority int

const (
	PriorityNormal   Priority = 0
	PriorityHigh     Priority = 10
	PriorityCritical Priority = 15
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	}
	return "custom"
}

// Job is a unit of work delivered to a Handler.
type Job struct {
	ID          string
	Kind        domain.JobKind
	Payload     domain.JobPayload
	Priority    Priority
	ScheduledAt time.Time
	CreatedAt   time.Time
	Attempts    int
}

// Handler processes one job. A returned error (or panic) is logged and
// the job is finished as failed; it is never redelivered.
type Handler func(ctx context.Context, job *Job) error

// Queue is the work-queue collaborator used by the crawler.
type Queue interface {
	// Create stores a job to be delivered at or after scheduledAt.
	Create(ctx context.Context, kind domain.JobKind, payload domain.JobPayload, priority Priority, scheduledAt time.Time) error

	// Process starts delivering jobs of kind to handler with at most
	// concurrency simultaneous invocations. It does not block.
	Process(kind domain.JobKind, concurrency int, handler Handler) error

	// Shutdown stops delivery and waits up to timeout for in-flight jobs.
	Shutdown(timeout time.Duration) error

	// Stats returns job counts per kind.
	Stats(ctx context.Context) (Stats, error)
}

// Counts holds job counts by state.
type Counts struct {
	Delayed  int64 `json:"delayed"`
	Inactive int64 `json:"inactive"`
	Active   int64 `json:"active"`
	Complete int64 `json:"complete"`
	Failed   int64 `json:"failed"`
}

// Stats maps job kinds to their counts.
type Stats map[domain.JobKind]Counts

// Total sums counts across kinds.
func (s Stats) Total() Counts {
	var total Counts
	for _, c := range s {
		total.Delayed += c.Delayed
		total.Inactive += c.Inactive
		total.Active += c.Active
		total.Complete += c.Complete
		total.Failed += c.Failed
	}
	return total
}

// EventType names a job lifecycle transition.
type EventType string

const (
	EventEnqueued  EventType = "enqueue"
	EventStarted   EventType = "start"
	EventCompleted EventType = "complete"
	EventFailed    EventType = "failed"
)

// Event describes a job lifecycle transition.
type Event struct {
	Type     EventType      `json:"type"`
	JobID    string         `json:"id"`
	Kind     domain.JobKind `json:"kind"`
	Target   string         `json:"target,omitempty"`
	Priority Priority       `json:"priority"`
	Error    string         `json:"error,omitempty"`
	At       time.Time      `json:"at"`
}

// Observer receives job events. Implementations must not block.
type Observer interface {
	OnJobEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnJobEvent calls f(e).
func (f ObserverFunc) OnJobEvent(e Event) {
	f(e)
}
