// Package config provides YAML configuration loading for the sochend server.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30m" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the complete sochend configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Provider ProviderConfig `yaml:"provider"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the WebSocket transport listener.
type ServerConfig struct {
	// Addr is the host:port the server binds to.
	Addr string `yaml:"addr"`
	// ShutdownTimeout bounds graceful shutdown on SIGTERM.
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// WorkflowConfig configures execution budgets and housekeeping.
type WorkflowConfig struct {
	// MaxTotalSteps caps the length of any workflow's history.
	MaxTotalSteps int `yaml:"max_total_steps"`
	// MaxAgentRepeats caps invocations of a single agent per workflow.
	MaxAgentRepeats int `yaml:"max_agent_repeats"`
	// MaxRetries is the per-step retry budget for recoverable agent errors.
	MaxRetries int `yaml:"max_retries"`
	// RetryBackoff is the base delay between retries (doubled per attempt).
	RetryBackoff Duration `yaml:"retry_backoff"`
	// Retention is how long terminal workflows stay queryable before eviction.
	Retention Duration `yaml:"retention"`
	// EventBufferSize is the per-subscriber event channel capacity.
	EventBufferSize int `yaml:"event_buffer_size"`
}

// ProviderConfig selects and tunes the language model backend.
type ProviderConfig struct {
	// Name is "anthropic", "openai" or "mock".
	Name string `yaml:"name"`
	// Model is the provider-specific model id; empty uses the adapter default.
	Model string `yaml:"model"`
	// Temperature controls sampling randomness (0.0-1.0).
	Temperature float64 `yaml:"temperature"`
	// MaxTokens bounds each completion.
	MaxTokens int64 `yaml:"max_tokens"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// Default returns a Config with production defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8765",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Workflow: WorkflowConfig{
			MaxTotalSteps:   24,
			MaxAgentRepeats: 4,
			MaxRetries:      2,
			RetryBackoff:    Duration(500 * time.Millisecond),
			Retention:       Duration(time.Hour),
			EventBufferSize: 64,
		},
		Provider: ProviderConfig{
			Name:        "mock",
			Temperature: 0.2,
			MaxTokens:   4096,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML file over the defaults. A missing path returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Workflow.MaxTotalSteps <= 0 || c.Workflow.MaxAgentRepeats <= 0 {
		return fmt.Errorf("workflow budgets must be positive")
	}
	if c.Workflow.MaxRetries < 0 {
		return fmt.Errorf("workflow.max_retries must not be negative")
	}
	// Subscribe delivers up to two catch-up events into a fresh buffer.
	if c.Workflow.EventBufferSize < 2 {
		return fmt.Errorf("workflow.event_buffer_size must be at least 2")
	}
	switch c.Provider.Name {
	case "anthropic", "openai", "mock":
	default:
		return fmt.Errorf("provider.name %q is not supported", c.Provider.Name)
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 1 {
		return fmt.Errorf("provider.temperature must be between 0 and 1")
	}
	return nil
}
