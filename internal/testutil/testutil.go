// Package testutil provides shared fixtures for package-level tests: a
// scriptable agent stub and workflow state builders.
package testutil

import (
	"context"

	"github.com/sochen-ai/sochen/core"
)

// StubAgent runs a supplied function, defaulting to a pass-through.
type StubAgent struct {
	AgentID core.AgentID
	RunFunc func(ctx context.Context, s core.WorkflowState) (core.WorkflowState, error)
	Writes  []string
}

var _ core.Agent = (*StubAgent)(nil)

// ID implements core.Agent.
func (a *StubAgent) ID() core.AgentID { return a.AgentID }

// Contract implements core.Agent.
func (a *StubAgent) Contract() core.Contract { return core.Contract{Writes: a.Writes} }

// Run implements core.Agent.
func (a *StubAgent) Run(ctx context.Context, s core.WorkflowState) (core.WorkflowState, error) {
	if a.RunFunc == nil {
		return s, nil
	}
	return a.RunFunc(ctx, s)
}

// RunningState builds a RUNNING workflow state with the given invocation
// history, the last entry becoming the active agent.
func RunningState(task string, history ...core.AgentID) core.WorkflowState {
	s := core.NewWorkflowState(task)
	s.Status = core.StatusRunning
	for _, id := range history {
		s.History = append(s.History, core.HistoryEntry{Agent: id, ResultingStatus: core.StatusRunning})
	}
	if len(history) > 0 {
		s.ActiveAgent = history[len(history)-1]
	}
	return s
}
