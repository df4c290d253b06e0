package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/storage/postgres"
)

// Job states stored in crawl_jobs.state.
const (
	stateInactive = "inactive"
	stateActive   = "active"
	stateComplete = "complete"
	stateFailed   = "failed"
)

// PostgresQueue is a durable Queue backed by the crawl_jobs table.
// Several processes may share one table; claims use FOR UPDATE SKIP LOCKED.
type PostgresQueue struct {
	*runner

	pool *postgres.Pool
}

// NewPostgresQueue creates a queue on pool. The crawl_jobs table must exist.
func NewPostgresQueue(pool *postgres.Pool, opts ...Option) *PostgresQueue {
	o := buildOptions(opts)
	q := &PostgresQueue{pool: pool}
	q.runner = newRunner(q, o, o.pollInterval)
	return q
}

// Compile-time interface check.
var _ Queue = (*PostgresQueue)(nil)

// Recover returns jobs left active by a crashed process to inactive.
// Call it once on start, before Process.
func (q *PostgresQueue) Recover(ctx context.Context) (int64, error) {
	tag, err := q.pool.Exec(ctx, `
		UPDATE crawl_jobs SET state = $1, updated_at = NOW() WHERE state = $2
	`, stateInactive, stateActive)
	if err != nil {
		return 0, fmt.Errorf("recover active jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Create stores a job to be delivered at or after scheduledAt.
func (q *PostgresQueue) Create(ctx context.Context, kind domain.JobKind, payload domain.JobPayload, priority Priority, scheduledAt time.Time) error {
	if !kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if q.isClosed() {
		return ErrClosed
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	id := uuid.New()
	job := &Job{
		ID:          id.String(),
		Kind:        kind,
		Payload:     payload,
		Priority:    priority,
		ScheduledAt: scheduledAt,
	}

	err = q.pool.QueryRow(ctx, `
		INSERT INTO crawl_jobs (id, kind, payload, priority, state, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, id, kind.String(), data, int(priority), stateInactive, scheduledAt).Scan(&job.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}

	q.emit(EventEnqueued, job, nil)
	q.notify(kind)
	return nil
}

// Process starts delivering jobs of kind to handler.
func (q *PostgresQueue) Process(kind domain.JobKind, concurrency int, handler Handler) error {
	return q.process(kind, concurrency, handler)
}

// Shutdown stops delivery and waits up to timeout for in-flight jobs.
func (q *PostgresQueue) Shutdown(timeout time.Duration) error {
	return q.shutdown(timeout)
}

// Stats returns job counts per kind.
func (q *PostgresQueue) Stats(ctx context.Context) (Stats, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT kind,
			COUNT(*) FILTER (WHERE state = 'inactive' AND scheduled_at > NOW()),
			COUNT(*) FILTER (WHERE state = 'inactive' AND scheduled_at <= NOW()),
			COUNT(*) FILTER (WHERE state = 'active'),
			COUNT(*) FILTER (WHERE state = 'complete'),
			COUNT(*) FILTER (WHERE state = 'failed')
		FROM crawl_jobs
		GROUP BY kind
	`)
	if err != nil {
		return nil, fmt.Errorf("query job stats: %w", err)
	}
	defer rows.Close()

	stats := make(Stats)
	for rows.Next() {
		var (
			kind string
			c    Counts
		)
		if err := rows.Scan(&kind, &c.Delayed, &c.Inactive, &c.Active, &c.Complete, &c.Failed); err != nil {
			return nil, fmt.Errorf("scan job stats: %w", err)
		}
		stats[domain.JobKind(kind)] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job stats: %w", err)
	}
	return stats, nil
}

func (q *PostgresQueue) claim(ctx context.Context, kind domain.JobKind) (*Job, time.Duration, error) {
	var (
		job      Job
		kindText string
		payload  []byte
		priority int
	)

	err := q.pool.QueryRow(ctx, `
		UPDATE crawl_jobs
		SET state = $2, attempts = attempts + 1, updated_at = NOW()
		WHERE id = (
			SELECT id FROM crawl_jobs
			WHERE kind = $1 AND state = $3 AND scheduled_at <= NOW()
			ORDER BY priority DESC, scheduled_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id::text, kind, payload, priority, scheduled_at, created_at, attempts
	`, kind.String(), stateActive, stateInactive).Scan(
		&job.ID, &kindText, &payload, &priority, &job.ScheduledAt, &job.CreatedAt, &job.Attempts,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, q.untilNextDue(ctx, kind), nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("claim job: %w", err)
	}

	if err := json.Unmarshal(payload, &job.Payload); err != nil {
		// A payload that cannot be decoded would fail forever; finish it.
		ferr := q.finish(ctx, &Job{ID: job.ID}, err)
		return nil, 0, errors.Join(fmt.Errorf("decode payload of job %s: %w", job.ID, err), ferr)
	}
	job.Kind = domain.JobKind(kindText)
	job.Priority = Priority(priority)
	return &job, 0, nil
}

// untilNextDue returns the wait until the earliest delayed job of kind.
func (q *PostgresQueue) untilNextDue(ctx context.Context, kind domain.JobKind) time.Duration {
	var wait *float64
	err := q.pool.QueryRow(ctx, `
		SELECT EXTRACT(EPOCH FROM (MIN(scheduled_at) - NOW()))::float8
		FROM crawl_jobs
		WHERE kind = $1 AND state = $2
	`, kind.String(), stateInactive).Scan(&wait)
	if err != nil || wait == nil {
		return q.maxWait
	}
	return time.Duration(*wait * float64(time.Second))
}

func (q *PostgresQueue) finish(ctx context.Context, job *Job, handlerErr error) error {
	state, lastError := stateComplete, ""
	if handlerErr != nil {
		state, lastError = stateFailed, handlerErr.Error()
	}

	id, err := uuid.Parse(job.ID)
	if err != nil {
		return fmt.Errorf("finish job %s: %w", job.ID, err)
	}

	_, err = q.pool.Exec(ctx, `
		UPDATE crawl_jobs SET state = $2, last_error = $3, updated_at = NOW() WHERE id = $1
	`, id, state, lastError)
	if err != nil {
		return fmt.Errorf("finish job %s: %w", job.ID, err)
	}
	return nil
}
