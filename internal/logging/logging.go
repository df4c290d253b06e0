// Package logging builds the process logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

const serviceName = "tronscan-crawler"

// Config selects the logger flavor and level.
type Config struct {
	Level       string
	Environment string
}

// New builds a zap logger. "production" yields JSON output without stack
// traces; anything else yields the development console encoder.
func New(cfg Config) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Environment == "production" {
		zapConfig = zap.NewProductionConfig()
		zapConfig.DisableStacktrace = true
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		zapConfig.Level = level
	}

	zapConfig.InitialFields = map[string]interface{}{
		"service": serviceName,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
