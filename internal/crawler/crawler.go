// Package crawler drives the explorer traversal: per-kind job handlers that
// fetch an entity, derive follow-up jobs and persist results, plus the
// orchestration entry points that seed and sweep the crawl.
//
// All mutable crawl state (pacing clock, dedup tracker) lives on Crawler and
// is shared by every concurrently running handler.
package crawler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tronscan-crawler/internal/dedup"
	"tronscan-crawler/internal/pacing"
	"tronscan-crawler/internal/queue"
	"tronscan-crawler/internal/storage"
	"tronscan-crawler/internal/tronscan"
)

// Default configuration values.
const (
	DefaultConcurrency      = 100
	DefaultSweepConcurrency = 1

	// MinSweepDelayMinutes is the shortest interval between sweeps.
	MinSweepDelayMinutes = 1
)

// API is the explorer read API used by handlers.
type API interface {
	FetchContract(ctx context.Context, address string) (*tronscan.Contract, bool)
	FetchWalletTokens(ctx context.Context, address string) (*tronscan.WalletTokens, bool)
	FetchTransactionHistory(ctx context.Context, target string) ([]tronscan.Transfer, bool)
}

// Compile-time interface check.
var _ API = (*tronscan.Client)(nil)

// Stores groups the persistence collaborators.
type Stores struct {
	Contracts    storage.ContractStore
	Wallets      storage.WalletStore
	Snapshots    storage.SnapshotStore
	Transactions storage.TransactionStore
}

// Crawler owns the shared crawl state and implements the job handlers.
type Crawler struct {
	api     API
	queue   queue.Queue
	stores  Stores
	clock   *pacing.Clock
	tracker *dedup.Tracker
	logger  *zap.Logger
	now     func() time.Time

	concurrency      int
	sweepConcurrency int
	walletRetryLimit int
}

// Option configures Crawler.
type Option func(*Crawler)

// WithClock sets the pacing clock.
func WithClock(clock *pacing.Clock) Option {
	return func(c *Crawler) {
		c.clock = clock
	}
}

// WithTracker sets the dedup tracker.
func WithTracker(tracker *dedup.Tracker) Option {
	return func(c *Crawler) {
		c.tracker = tracker
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// WithNow overrides the wall clock used for record timestamps and sweep delays.
func WithNow(now func() time.Time) Option {
	return func(c *Crawler) {
		c.now = now
	}
}

// WithConcurrency sets the handler concurrency of the contract, wallet and
// transactions kinds.
func WithConcurrency(n int) Option {
	return func(c *Crawler) {
		c.concurrency = n
	}
}

// WithSweepConcurrency sets the handler concurrency of the sweep kind.
func WithSweepConcurrency(n int) Option {
	return func(c *Crawler) {
		c.sweepConcurrency = n
	}
}

// WithWalletRetryLimit caps wallet re-fetches after an empty response.
// Zero or less retries without limit.
func WithWalletRetryLimit(n int) Option {
	return func(c *Crawler) {
		c.walletRetryLimit = n
	}
}

// New creates a Crawler.
func New(api API, q queue.Queue, stores Stores, opts ...Option) *Crawler {
	c := &Crawler{
		api:              api,
		queue:            q,
		stores:           stores,
		logger:           zap.NewNop(),
		now:              time.Now,
		concurrency:      DefaultConcurrency,
		sweepConcurrency: DefaultSweepConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = pacing.NewClock()
	}
	if c.tracker == nil {
		c.tracker = dedup.NewTracker()
	}
	return c
}

// Tracker returns the dedup tracker.
func (c *Crawler) Tracker() *dedup.Tracker {
	return c.tracker
}
