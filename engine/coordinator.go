package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sochen-ai/sochen/core"
)

// run is the coordinator loop for one workflow. It owns the state
// exclusively: agents receive deep copies, the returned copy becomes the
// next committed snapshot. Cancellation is observed at step boundaries and
// between retry attempts, never mid-agent.
func (r *Registry) run(ctx context.Context, workflowID string, state core.WorkflowState) {
	defer r.wg.Done()

	next := r.policy.Entry
	for {
		if ctx.Err() != nil {
			r.finalize(workflowID, state, core.StatusCancelled, "workflow cancelled")
			return
		}

		agent := r.agents[next]
		state.ActiveAgent = next
		r.commit(workflowID, state.Clone(),
			core.NewStatusEvent(workflowID, core.StatusRunning, next, "agent started"))

		entered := time.Now()
		seen := len(state.Messages)
		out, err := r.invoke(ctx, agent, state)
		exited := time.Now()

		switch {
		case err != nil && errors.Is(err, context.Canceled):
			r.finalize(workflowID, state, core.StatusCancelled, "workflow cancelled")
			return
		case err != nil:
			// Fatal or retries exhausted: keep the pre-agent state, record
			// the failure and let the policy turn it into a FAILED verdict.
			state.Error = err.Error()
			state.AddMessage(next, err.Error())
			r.logger.Error("agent failed", "workflow_id", workflowID, "agent", string(next), "error", err)
		default:
			// Fields the coordinator owns are restored regardless of what
			// the agent returned.
			out.Task = state.Task
			out.Status = core.StatusRunning
			out.ActiveAgent = next
			out.History = state.History
			state = out
		}

		state.History = append(state.History, core.HistoryEntry{
			Agent:           next,
			EnteredAt:       entered,
			ExitedAt:        exited,
			ResultingStatus: core.StatusRunning,
		})
		r.metrics.AgentStep(string(next), exited.Sub(entered))
		r.remember(workflowID, state, seen)
		r.commit(workflowID, state.Clone(),
			core.NewStatusEvent(workflowID, core.StatusRunning, next, "agent completed"))

		v := r.policy.Decide(state)
		if v.Terminate {
			r.finalize(workflowID, state, v.Status, v.Reason)
			return
		}
		next = v.Next
	}
}

// invoke runs one agent with the per-step retry budget. Only errors wrapped
// as recoverable are retried; anything else aborts the step. The agent
// always receives a fresh deep copy per attempt.
func (r *Registry) invoke(ctx context.Context, agent core.Agent, state core.WorkflowState) (core.WorkflowState, error) {
	backoff := r.cfg.RetryBackoff
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			r.metrics.AgentRetry(string(agent.ID()))
			r.logger.Warn("retrying agent after recoverable error",
				"agent", string(agent.ID()), "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return state, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		out, err := agent.Run(ctx, state.Clone())
		if err == nil {
			return out, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return state, err
		}
		if !core.IsRecoverable(err) {
			return state, fmt.Errorf("agent %s: %w", agent.ID(), err)
		}
		lastErr = err
	}
	return state, fmt.Errorf("agent %s: retry budget exhausted: %w", agent.ID(), lastErr)
}

// remember stores messages the step produced for later similarity recall.
func (r *Registry) remember(workflowID string, state core.WorkflowState, seen int) {
	for _, m := range state.Messages[min(seen, len(state.Messages)):] {
		err := r.memory.Store(workflowID, m.Content, map[string]any{"agent": string(m.Agent)})
		if err != nil {
			r.logger.Warn("memory store failed", "workflow_id", workflowID, "error", err)
		}
	}
}

// finalize commits the terminal snapshot and emits the closing status and
// results events.
func (r *Registry) finalize(workflowID string, state core.WorkflowState, status core.Status, reason string) {
	state.Status = status
	state.ActiveAgent = ""
	if status == core.StatusFailed && reason != "" {
		state.Error = reason
	}
	if n := len(state.History); n > 0 {
		state.History[n-1].ResultingStatus = status
	}

	message := reason
	if message == "" {
		message = "workflow finished"
	}
	r.commit(workflowID, state.Clone(),
		core.NewStatusEvent(workflowID, status, "", message),
		core.NewResultsEvent(workflowID, state))

	r.metrics.WorkflowFinished(string(status))
	r.logger.Info("workflow finished",
		"workflow_id", workflowID, "status", string(status), "reason", reason)
}
