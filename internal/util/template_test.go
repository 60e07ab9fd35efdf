package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("Task: {{.task}} ({{upper .status}})", map[string]any{
		"task":   "fix parser",
		"status": "running",
	})
	require.NoError(t, err)
	assert.Equal(t, "Task: fix parser (RUNNING)", out)
}

func TestRenderTemplate_FastPath(t *testing.T) {
	out, err := RenderTemplate("no markers here", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers here", out)
}

func TestRenderTemplate_BadTemplate(t *testing.T) {
	_, err := RenderTemplate("{{.task", nil)
	assert.Error(t, err)
}
