package crawler

import (
	"context"
	"fmt"
	"time"

	"tronscan-crawler/internal/dedup"
	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/observability"
	"tronscan-crawler/internal/queue"
)

// schedule reserves a pacing slot and creates the job at that slot.
// No lock is held while the queue is called.
func (c *Crawler) schedule(ctx context.Context, kind domain.JobKind, payload domain.JobPayload) error {
	slot := c.clock.Reserve()
	observability.UpdatePacingLag(slot.Sub(c.now()).Seconds())

	if err := c.queue.Create(ctx, kind, payload, queue.PriorityHigh, slot); err != nil {
		return fmt.Errorf("schedule %s %s: %w", kind, payload.Target, err)
	}
	observability.RecordJobScheduled(kind.String())
	return nil
}

// scheduleIfNew schedules the job unless payload.Target is already in set.
// Reports whether the job was scheduled.
func (c *Crawler) scheduleIfNew(ctx context.Context, set dedup.Set, kind domain.JobKind, payload domain.JobPayload) (bool, error) {
	if !c.tracker.MarkIfNew(set, payload.Target) {
		observability.RecordJobDeduplicated(kind.String())
		return false, nil
	}
	observability.UpdateDedupSetSize(set.String(), c.tracker.Len(set))

	if err := c.schedule(ctx, kind, payload); err != nil {
		return false, err
	}
	return true, nil
}

// scheduleSweep creates the next sweep job delay minutes from now.
// Sweeps bypass the pacing clock.
func (c *Crawler) scheduleSweep(ctx context.Context, delayMinutes int) error {
	at := c.now().Add(time.Duration(delayMinutes) * time.Minute)
	payload := domain.JobPayload{DelayMinutes: delayMinutes}

	if err := c.queue.Create(ctx, domain.JobSweep, payload, queue.PriorityHigh, at); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	observability.RecordJobScheduled(domain.JobSweep.String())
	return nil
}
