package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tronscan-crawler/internal/config"
	"tronscan-crawler/internal/crawler"
	"tronscan-crawler/internal/dispatcher"
	"tronscan-crawler/internal/pacing"
	"tronscan-crawler/internal/queue"
	chstore "tronscan-crawler/internal/storage/clickhouse"
	pgstore "tronscan-crawler/internal/storage/postgres"
	"tronscan-crawler/internal/tronscan"
)

// app holds the process-wide collaborators of a crawl.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	pool    *pgstore.Pool
	chConn  *chstore.Conn
	queue   queue.Queue
	hub     *dispatcher.Hub
	crawler *crawler.Crawler
}

// newApp connects the stores, builds the queue and wires the crawler.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool

	stores := crawler.Stores{
		Contracts:    pgstore.NewContractStore(pool),
		Wallets:      pgstore.NewWalletStore(pool),
		Snapshots:    pgstore.NewSnapshotStore(pool),
		Transactions: pgstore.NewTransactionStore(pool),
	}

	if cfg.ClickHouse.DSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		a.chConn = conn
		stores.Snapshots = chstore.NewSnapshotStore(conn)
		stores.Transactions = chstore.NewTransactionStore(conn)
		logger.Info("snapshot and transaction history stored in clickhouse")
	}

	queueOpts := []queue.Option{
		queue.WithLogger(logger.Named("queue")),
		queue.WithPollInterval(cfg.Queue.PollInterval),
	}
	if cfg.Dispatcher.Enabled {
		a.hub = dispatcher.NewHub(logger.Named("dispatcher"))
		queueOpts = append(queueOpts, queue.WithObserver(a.hub))
	}

	switch cfg.Queue.Backend {
	case config.QueuePostgres:
		pq := queue.NewPostgresQueue(pool, queueOpts...)
		recovered, err := pq.Recover(ctx)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("recover queue: %w", err)
		}
		if recovered > 0 {
			logger.Warn("requeued jobs left active by a previous run", zap.Int64("jobs", recovered))
		}
		a.queue = pq
	default:
		a.queue = queue.NewMemoryQueue(queueOpts...)
	}

	client := tronscan.NewClient(cfg.API.BaseURL, cfg.API.Key,
		tronscan.WithTimeout(cfg.API.Timeout),
		tronscan.WithMaxRetries(cfg.API.MaxRetries),
		tronscan.WithRetryDelay(cfg.API.RetryDelay),
		tronscan.WithLogger(logger.Named("tronscan")),
	)

	clock := pacing.NewClock(
		pacing.WithQuantum(cfg.Crawler.PacingQuantum),
		pacing.WithIdleThreshold(cfg.Crawler.IdleThreshold),
		pacing.WithIdleStep(cfg.Crawler.IdleStep),
	)

	a.crawler = crawler.New(client, a.queue, stores,
		crawler.WithClock(clock),
		crawler.WithLogger(logger.Named("crawler")),
		crawler.WithConcurrency(cfg.Crawler.Concurrency),
		crawler.WithSweepConcurrency(cfg.Crawler.SweepConcurrency),
		crawler.WithWalletRetryLimit(cfg.Crawler.WalletRetryLimit),
	)

	logger.Info("crawler ready",
		zap.String("queue", cfg.Queue.Backend),
		zap.String("api", cfg.API.BaseURL),
		zap.Int("concurrency", cfg.Crawler.Concurrency),
		zap.Bool("dispatcher", cfg.Dispatcher.Enabled))
	return a, nil
}

// run registers the handlers, seeds the crawl and blocks until ctx is
// canceled, then drains the queue.
func (a *app) run(ctx context.Context, seed func(context.Context, *app) error) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.hub != nil {
		srv := dispatcher.NewServer(a.queue, a.hub, a.logger.Named("dispatcher"))
		g.Go(func() error {
			a.hub.Run(gctx)
			return nil
		})
		g.Go(func() error {
			return srv.ListenAndServe(gctx, a.cfg.Dispatcher.Addr)
		})
	}

	if err := a.crawler.Register(); err != nil {
		return errors.Join(err, a.shutdown())
	}
	if err := seed(ctx, a); err != nil {
		a.logger.Error("seeding failed", zap.Error(err))
		return errors.Join(err, a.shutdown())
	}

	g.Go(func() error {
		<-gctx.Done()
		if err := a.shutdown(); err != nil && !errors.Is(err, queue.ErrShutdownTimeout) {
			return err
		}
		return nil
	})

	return g.Wait()
}

func (a *app) shutdown() error {
	a.logger.Info("shutting down", zap.Duration("timeout", a.cfg.Queue.ShutdownTimeout))
	if err := a.queue.Shutdown(a.cfg.Queue.ShutdownTimeout); err != nil {
		a.logger.Warn("queue shutdown", zap.Error(err))
		return err
	}
	a.logger.Info("shutdown complete")
	return nil
}

func (a *app) close() {
	if a.chConn != nil {
		a.chConn.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
