package sochen

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sochen-ai/sochen/core"
	"github.com/sochen-ai/sochen/engine"
)

func TestRunWorkflow_HeuristicRosterCompletes(t *testing.T) {
	s, err := New(func(o *Options) {
		o.EngineConfig = engine.Config{
			EventBufferSize: 64,
			MaxRetries:      1,
			RetryBackoff:    time.Millisecond,
			Retention:       time.Hour,
		}
	})
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	final, err := s.RunWorkflow(ctx, "write a csv parser")
	require.NoError(t, err)

	assert.Equal(t, core.StatusCompleted, final.Status)
	// The default policy walks the full happy path once.
	require.Len(t, final.History, 6)
	assert.Equal(t, core.AgentArchitect, final.History[0].Agent)
	assert.Equal(t, core.AgentDocumentation, final.History[5].Agent)
	assert.NotEmpty(t, final.Plan)
	assert.Contains(t, final.Files, "main.go")
	assert.Contains(t, final.Files, "README.md")
	assert.NotEmpty(t, final.TestResults)
	assert.NotEmpty(t, final.Docs)
}

func TestStartWorkflow_ResultsAndCancel(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	}()

	id, err := s.StartWorkflow("quick task")
	require.NoError(t, err)

	snap, err := s.Results(id)
	require.NoError(t, err)
	assert.Equal(t, "quick task", snap.Task)

	require.Eventually(t, func() bool {
		snap, err := s.Results(id)
		return err == nil && snap.Status.Terminal()
	}, 5*time.Second, 5*time.Millisecond)

	// Terminal workflows accept cancel as a no-op.
	assert.NoError(t, s.Cancel(id))
}
