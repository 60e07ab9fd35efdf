package engine

import (
	"time"

	"github.com/sochen-ai/sochen/core"
	"github.com/sochen-ai/sochen/logging"
	"github.com/sochen-ai/sochen/memory"
	"github.com/sochen-ai/sochen/metrics"
	"github.com/sochen-ai/sochen/routing"
)

// Config defines tuning parameters for workflow execution.
type Config struct {
	// EventBufferSize sets the per-subscriber event channel capacity.
	// When a subscriber's buffer is full, events addressed to it are
	// dropped rather than blocking the coordinator.
	EventBufferSize int

	// MaxRetries is the per-step budget for retrying an agent after a
	// recoverable error. Zero disables retries.
	MaxRetries int

	// RetryBackoff is the delay before the first retry; it doubles on
	// each subsequent attempt.
	RetryBackoff time.Duration

	// Retention is how long a terminal workflow stays queryable before
	// it is evicted from the registry. Zero or negative retains forever.
	Retention time.Duration
}

// DefaultConfig provides production-ready defaults.
var DefaultConfig = Config{
	EventBufferSize: 64,
	MaxRetries:      2,
	RetryBackoff:    500 * time.Millisecond,
	Retention:       time.Hour,
}

// Options configures a Registry instance using the functional options pattern.
type Options struct {
	// Config contains operational parameters. Defaults to DefaultConfig.
	Config Config

	// Policy is the routing table driving agent handoffs. Defaults to
	// routing.DefaultPolicy().
	Policy routing.Policy

	// MemoryStore provides cross-step recall for agents. Defaults to the
	// in-memory implementation.
	MemoryStore core.MemoryStore

	// Logger provides structured logging. Defaults to NoOpLogger.
	Logger logging.Logger

	// Metrics records workflow instrumentation. Nil records nothing.
	Metrics *metrics.Metrics
}

// WithConfig overrides the execution parameters.
func WithConfig(cfg Config) func(o *Options) {
	return func(o *Options) { o.Config = cfg }
}

// WithPolicy overrides the routing policy.
func WithPolicy(p routing.Policy) func(o *Options) {
	return func(o *Options) { o.Policy = p }
}

// WithMemoryStore overrides the memory backend.
func WithMemoryStore(s core.MemoryStore) func(o *Options) {
	return func(o *Options) { o.MemoryStore = s }
}

// WithLogger overrides the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithMetrics attaches workflow instrumentation.
func WithMetrics(m *metrics.Metrics) func(o *Options) {
	return func(o *Options) { o.Metrics = m }
}

func defaultOptions() Options {
	return Options{
		Config:      DefaultConfig,
		Policy:      routing.DefaultPolicy(),
		MemoryStore: memory.NewInMemoryStore(),
		Logger:      logging.NoOpLogger{},
	}
}
