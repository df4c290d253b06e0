package queue

import (
	"time"

	"go.uber.org/zap"
)

// Default configuration values.
const (
	DefaultPollInterval = 250 * time.Millisecond
	defaultIdleWait     = time.Second
)

type options struct {
	logger       *zap.Logger
	observer     Observer
	pollInterval time.Duration
	now          func() time.Time
}

// Option configures a queue.
type Option func(*options)

// WithLogger sets the logger for handler failures.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver registers an observer for job events.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithPollInterval sets how often an idle worker re-checks the backend.
// Only the PostgreSQL queue polls; the memory queue is woken directly.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// WithNow overrides the clock used to decide whether a job is due.
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:       zap.NewNop(),
		pollInterval: DefaultPollInterval,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
