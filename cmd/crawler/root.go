package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tronscan-crawler/internal/config"
	"tronscan-crawler/internal/logging"
	"tronscan-crawler/internal/storage/migrations"
	pgstore "tronscan-crawler/internal/storage/postgres"
)

// NewRootCmd creates the crawler root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "crawler",
		Short:         "Breadth-first crawler for the TRON explorer API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to YAML config file")

	cmd.AddCommand(newFromFileCmd())
	cmd.AddCommand(newFromDBCmd())
	cmd.AddCommand(newTrackWalletsCmd())
	cmd.AddCommand(newMigrateCmd())

	return cmd
}

func newFromFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "from-file <path>",
		Short: "Seed contract jobs from a whitespace-separated address file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addresses, err := readAddresses(args[0])
			if err != nil {
				return err
			}
			return runCrawl(cmd, func(ctx context.Context, a *app) error {
				_, err := a.crawler.SeedAddresses(ctx, addresses)
				return err
			})
		},
	}
}

func newFromDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "from-db",
		Short: "Seed contract jobs from every stored contract",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, func(ctx context.Context, a *app) error {
				_, err := a.crawler.SeedFromStore(ctx)
				return err
			})
		},
	}
}

func newTrackWalletsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "track-wallets <minutes>",
		Short: "Refresh every stored wallet now and then every <minutes>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := parseMinutes(args[0])
			if err != nil {
				return err
			}
			return runCrawl(cmd, func(ctx context.Context, a *app) error {
				return a.crawler.StartSweep(ctx, minutes)
			})
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL and ClickHouse schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			if cfg.Postgres.DSN == "" {
				return config.ErrMissingDSN
			}

			ctx := cmd.Context()
			pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				return err
			}
			logger.Info("postgres schema applied")

			if cfg.ClickHouse.DSN != "" {
				conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
				if err != nil {
					return err
				}
				conn.Close()
				logger.Info("clickhouse schema applied")
			}
			return nil
		},
	}
}

// runCrawl builds the app, registers the handlers, seeds the crawl and
// serves jobs until SIGINT or SIGTERM.
func runCrawl(cmd *cobra.Command, seed func(context.Context, *app) error) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	defer a.close()

	return a.run(ctx, seed)
}

// setup loads configuration and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Environment: cfg.Logging.Environment,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// readAddresses reads whitespace-separated addresses from path.
func readAddresses(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read address file: %w", err)
	}
	return strings.Fields(string(data)), nil
}

// parseMinutes parses a positive whole number of minutes.
func parseMinutes(s string) (int, error) {
	minutes, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || minutes <= 0 {
		return 0, fmt.Errorf("minutes must be a positive integer, got %q", s)
	}
	return minutes, nil
}
