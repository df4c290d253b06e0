package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tronscan-crawler/internal/dedup"
	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/observability"
	"tronscan-crawler/internal/queue"
	"tronscan-crawler/internal/storage"
	"tronscan-crawler/internal/tronscan"
)

// Handler returns the queue handler for kind.
func (c *Crawler) Handler(kind domain.JobKind) (queue.Handler, error) {
	switch kind {
	case domain.JobContract:
		return c.handleContract, nil
	case domain.JobWallet:
		return c.handleWallet, nil
	case domain.JobTransactions:
		return c.handleTransactions, nil
	case domain.JobSweep:
		return c.handleSweep, nil
	}
	return nil, fmt.Errorf("no handler for job kind %q", kind)
}

// handleContract fetches a contract, follows its creator and requests the
// contract's transaction history. A failed fetch drops the job.
func (c *Crawler) handleContract(ctx context.Context, job *queue.Job) error {
	target := job.Payload.Target
	logger := c.logger.With(zap.String("kind", job.Kind.String()), zap.String("target", target))

	info, ok := c.api.FetchContract(ctx, target)
	if !ok {
		logger.Debug("contract not available")
		return nil
	}

	now := c.now().UnixMilli()
	var errs []error

	if creator := info.Creator.Address; creator != "" {
		if info.Creator.IsContract {
			_, err := c.scheduleIfNew(ctx, dedup.Scheduled, domain.JobContract, domain.JobPayload{Target: creator})
			errs = append(errs, err)
		} else {
			if _, err := c.stores.Wallets.EnsureExists(ctx, creator, now); err != nil {
				errs = append(errs, fmt.Errorf("ensure creator wallet: %w", err))
			} else {
				observability.RecordStored("wallet")
			}
			_, err := c.scheduleIfNew(ctx, dedup.Scheduled, domain.JobWallet, domain.JobPayload{Target: creator, Expand: true})
			errs = append(errs, err)
		}
	}

	if err := c.stores.Contracts.Upsert(ctx, info.Record(target, now)); err != nil {
		logger.Warn("upsert contract failed", zap.Error(err))
	} else {
		observability.RecordStored("contract")
	}

	_, err := c.scheduleIfNew(ctx, dedup.Transactions, domain.JobTransactions, domain.JobPayload{Target: target, Expand: true})
	errs = append(errs, err)

	return errors.Join(errs...)
}

// handleWallet stores a new token snapshot for the wallet. An empty or
// failed fetch re-schedules the same job. With Expand set, the wallet's
// transaction history is requested whatever the fetch outcome.
func (c *Crawler) handleWallet(ctx context.Context, job *queue.Job) error {
	payload := job.Payload

	err := c.refreshWallet(ctx, job)

	if payload.Expand {
		_, serr := c.scheduleIfNew(ctx, dedup.Transactions, domain.JobTransactions,
			domain.JobPayload{Target: payload.Target, Expand: false})
		err = errors.Join(err, serr)
	}
	return err
}

func (c *Crawler) refreshWallet(ctx context.Context, job *queue.Job) error {
	payload := job.Payload
	logger := c.logger.With(zap.String("kind", job.Kind.String()), zap.String("target", payload.Target))

	wallet, ok := c.api.FetchWalletTokens(ctx, payload.Target)
	if !ok {
		if c.walletRetryLimit > 0 && payload.Attempt >= c.walletRetryLimit {
			logger.Warn("wallet retry limit reached", zap.Int("attempts", payload.Attempt))
			return nil
		}
		retry := payload
		retry.Attempt++
		observability.RecordWalletRetry()
		return c.schedule(ctx, domain.JobWallet, retry)
	}

	now := c.now().UnixMilli()
	snapshot := newSnapshot(payload.Target, wallet, now)

	if _, err := c.stores.Wallets.EnsureExists(ctx, payload.Target, now); err != nil {
		return fmt.Errorf("ensure wallet: %w", err)
	}
	if err := c.stores.Snapshots.Insert(ctx, snapshot); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	if err := c.stores.Wallets.SetCurrentSnapshot(ctx, payload.Target, snapshot.ID, snapshot.LoadedAt); err != nil {
		return fmt.Errorf("set current snapshot: %w", err)
	}
	observability.RecordStored("snapshot")

	logger.Debug("wallet snapshot stored",
		zap.String("snapshot", snapshot.ID),
		zap.Int("tokens", snapshot.TokensCount),
		zap.String("usd", snapshot.AmountInUSD.String()))
	return nil
}

// newSnapshot aggregates the USD value and token count of a token list.
// Tokens are keyed by abbreviation, falling back to the token id.
func newSnapshot(address string, wallet *tronscan.WalletTokens, now int64) *domain.WalletSnapshot {
	tokens := make(map[string]domain.WalletToken, len(wallet.Tokens))
	total := decimal.Zero
	for _, token := range wallet.Tokens {
		total = total.Add(token.TokenValueInUSD)
		key := token.TokenAbbr
		if key == "" {
			key = token.TokenID
		}
		tokens[key] = token
	}

	return &domain.WalletSnapshot{
		ID:            uuid.NewString(),
		WalletAddress: address,
		Tokens:        tokens,
		AmountInUSD:   total,
		TokensCount:   len(wallet.Tokens),
		LoadedAt:      now,
	}
}

// handleTransactions stores a target's transfer history and schedules a
// wallet job for every counterparty, inheriting the job's Expand flag.
// Transaction insert failures are treated as duplicates and ignored.
func (c *Crawler) handleTransactions(ctx context.Context, job *queue.Job) error {
	payload := job.Payload
	logger := c.logger.With(zap.String("kind", job.Kind.String()), zap.String("target", payload.Target))

	transfers, ok := c.api.FetchTransactionHistory(ctx, payload.Target)
	if !ok || len(transfers) == 0 {
		logger.Debug("no transfers", zap.Bool("fetched", ok))
		return nil
	}

	now := c.now().UnixMilli()
	var errs []error

	for _, transfer := range transfers {
		for _, addr := range [2]string{transfer.FromAddress, transfer.ToAddress} {
			if addr == "" {
				continue
			}
			created, err := c.stores.Wallets.EnsureExists(ctx, addr, now)
			if err != nil {
				errs = append(errs, fmt.Errorf("ensure wallet %s: %w", addr, err))
				continue
			}
			if created {
				observability.RecordStored("wallet")
			}
			_, err = c.scheduleIfNew(ctx, dedup.Scheduled, domain.JobWallet,
				domain.JobPayload{Target: addr, Expand: payload.Expand})
			if err != nil {
				errs = append(errs, err)
			}
		}

		if err := c.stores.Transactions.Insert(ctx, transfer.Record()); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				observability.RecordTransactionDuplicate()
			} else {
				logger.Debug("insert transaction failed", zap.String("hash", transfer.Hash), zap.Error(err))
			}
			continue
		}
		observability.RecordStored("transaction")
	}

	logger.Debug("transfers processed", zap.Int("count", len(transfers)))
	return errors.Join(errs...)
}

// handleSweep starts a new traversal pass over all known wallets. The next
// sweep is scheduled on every exit path. A non-positive delay is clamped
// to MinSweepDelayMinutes and reported as an error after the pass.
func (c *Crawler) handleSweep(ctx context.Context, job *queue.Job) (err error) {
	delay := job.Payload.DelayMinutes
	var delayErr error
	if delay < MinSweepDelayMinutes {
		delayErr = fmt.Errorf("sweep job with invalid delay %d, using %d", delay, MinSweepDelayMinutes)
		delay = MinSweepDelayMinutes
	}

	defer func() {
		if serr := c.scheduleSweep(ctx, delay); serr != nil {
			err = errors.Join(err, serr)
		}
		err = errors.Join(err, delayErr)
	}()

	observability.RecordSweepStarted()
	c.tracker.ResetAll()
	backlog := c.clock.Next().Sub(c.now())
	if backlog < 0 {
		backlog = 0
	}
	c.clock.Reset()
	observability.UpdateDedupSetSize(dedup.Scheduled.String(), 0)
	observability.UpdateDedupSetSize(dedup.Transactions.String(), 0)

	addresses, err := c.stores.Wallets.ListAddresses(ctx)
	if err != nil {
		return fmt.Errorf("list wallets: %w", err)
	}

	scheduled := 0
	var errs []error
	for _, addr := range addresses {
		ok, err := c.scheduleIfNew(ctx, dedup.Scheduled, domain.JobWallet, domain.JobPayload{Target: addr})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			scheduled++
		}
	}

	c.logger.Info("sweep started",
		zap.Int("wallets", len(addresses)),
		zap.Int("scheduled", scheduled),
		zap.Duration("dropped_backlog", backlog),
		zap.Int("next_in_minutes", delay))
	return errors.Join(errs...)
}
