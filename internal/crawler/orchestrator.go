package crawler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tronscan-crawler/internal/address"
	"tronscan-crawler/internal/dedup"
	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/queue"
)

// Register attaches one handler per job kind to the queue.
func (c *Crawler) Register() error {
	for _, kind := range domain.JobKinds {
		handler, err := c.Handler(kind)
		if err != nil {
			return err
		}

		concurrency := c.concurrency
		if kind == domain.JobSweep {
			concurrency = c.sweepConcurrency
		}

		if err := c.queue.Process(kind, concurrency, handler); err != nil {
			return fmt.Errorf("register %s handler: %w", kind, err)
		}
		c.logger.Debug("handler registered", zap.String("kind", kind.String()), zap.Int("concurrency", concurrency))
	}
	return nil
}

// SeedAddresses schedules a contract job for every valid address not yet
// scheduled in this pass. Hex addresses are converted; invalid entries are
// logged and skipped. Returns the number of jobs scheduled.
func (c *Crawler) SeedAddresses(ctx context.Context, addresses []string) (int, error) {
	scheduled := 0
	for _, raw := range addresses {
		addr, err := address.Normalize(raw)
		if err != nil {
			c.logger.Warn("skipping invalid address", zap.String("address", raw), zap.Error(err))
			continue
		}

		ok, err := c.scheduleIfNew(ctx, dedup.Scheduled, domain.JobContract, domain.JobPayload{Target: addr})
		if err != nil {
			if errors.Is(err, queue.ErrClosed) {
				return scheduled, err
			}
			c.logger.Warn("seed failed", zap.String("address", addr), zap.Error(err))
			continue
		}
		if ok {
			scheduled++
		}
	}

	c.logger.Info("seeded contracts", zap.Int("input", len(addresses)), zap.Int("scheduled", scheduled))
	return scheduled, nil
}

// SeedFromStore schedules a contract job for every persisted contract.
func (c *Crawler) SeedFromStore(ctx context.Context) (int, error) {
	addresses, err := c.stores.Contracts.ListAddresses(ctx)
	if err != nil {
		return 0, fmt.Errorf("list contracts: %w", err)
	}
	return c.SeedAddresses(ctx, addresses)
}

// StartSweep enqueues the first periodic sweep for immediate delivery.
// Each sweep re-schedules itself intervalMinutes later.
func (c *Crawler) StartSweep(ctx context.Context, intervalMinutes int) error {
	if intervalMinutes <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %d", intervalMinutes)
	}

	payload := domain.JobPayload{DelayMinutes: intervalMinutes}
	if err := c.queue.Create(ctx, domain.JobSweep, payload, queue.PriorityHigh, c.now()); err != nil {
		return fmt.Errorf("start sweep: %w", err)
	}
	c.logger.Info("periodic sweep started", zap.Int("interval_minutes", intervalMinutes))
	return nil
}
