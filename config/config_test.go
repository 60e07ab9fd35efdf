package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8765", cfg.Server.Addr)
	assert.Equal(t, 24, cfg.Workflow.MaxTotalSteps)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sochen.yaml")
	body := `
server:
  addr: ":9000"
workflow:
  max_agent_repeats: 2
  retention: 30m
provider:
  name: anthropic
  temperature: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 2, cfg.Workflow.MaxAgentRepeats)
	assert.Equal(t, 30*time.Minute, cfg.Workflow.Retention.Duration())
	assert.Equal(t, "anthropic", cfg.Provider.Name)
	// Untouched sections keep their defaults.
	assert.Equal(t, 24, cfg.Workflow.MaxTotalSteps)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider:\n  name: cohere\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "not supported")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate_RejectsUndersizedEventBuffer(t *testing.T) {
	cfg := Default()
	cfg.Workflow.EventBufferSize = 1
	assert.ErrorContains(t, cfg.Validate(), "event_buffer_size")

	cfg.Workflow.EventBufferSize = 2
	assert.NoError(t, cfg.Validate())
}
