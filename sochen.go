// Package sochen provides a high-level façade over the workflow registry,
// the agent roster and the routing policy. Most applications interact with
// this package by:
//  1. Creating a Sochen via New() (optionally wiring a model provider)
//  2. Starting workflows asynchronously (StartWorkflow) or synchronously
//     (RunWorkflow)
//  3. Consuming status and results through Subscribe or Results
//
// The façade delegates orchestration to engine.Registry while keeping setup
// ergonomics concise. All defaults are safe for local development and
// testing: without a provider the roster runs its deterministic heuristics.
package sochen

import (
	"context"
	"fmt"

	"github.com/sochen-ai/sochen/agent"
	"github.com/sochen-ai/sochen/core"
	"github.com/sochen-ai/sochen/engine"
	"github.com/sochen-ai/sochen/logging"
	"github.com/sochen-ai/sochen/memory"
	"github.com/sochen-ai/sochen/metrics"
	"github.com/sochen-ai/sochen/model"
	"github.com/sochen-ai/sochen/routing"
)

// Options configures the Sochen instance.
type Options struct {
	// EngineConfig tunes buffering, retries and retention.
	EngineConfig engine.Config

	// Policy is the routing table. Defaults to routing.DefaultPolicy().
	Policy routing.Policy

	// Model drives the agents; nil selects the deterministic heuristics.
	Model model.Model

	// MemoryStore is shared between the coordinator and the agents.
	// Defaults to the in-memory implementation.
	MemoryStore core.MemoryStore

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger

	// Metrics records instrumentation. Nil records nothing.
	Metrics *metrics.Metrics
}

// Sochen is the high-level façade aggregating the registry and the roster.
type Sochen struct {
	opts     Options
	registry *engine.Registry
}

// New creates a Sochen instance with optional overrides.
func New(optFns ...func(o *Options)) (*Sochen, error) {
	opts := Options{
		EngineConfig: engine.DefaultConfig,
		Policy:       routing.DefaultPolicy(),
		MemoryStore:  memory.NewInMemoryStore(),
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	agentOpts := []func(o *agent.Options){
		agent.WithMemory(opts.MemoryStore),
		agent.WithLogger(opts.Logger),
	}
	if opts.Model != nil {
		agentOpts = append(agentOpts, agent.WithModel(opts.Model))
	}

	registry, err := engine.New(
		agent.Roster(agentOpts...),
		engine.WithConfig(opts.EngineConfig),
		engine.WithPolicy(opts.Policy),
		engine.WithMemoryStore(opts.MemoryStore),
		engine.WithLogger(opts.Logger),
		engine.WithMetrics(opts.Metrics),
	)
	if err != nil {
		return nil, err
	}
	return &Sochen{opts: opts, registry: registry}, nil
}

// Registry exposes the underlying workflow registry, typically to mount it
// behind the transport server.
func (s *Sochen) Registry() *engine.Registry { return s.registry }

// StartWorkflow accepts a task and returns its workflow id.
func (s *Sochen) StartWorkflow(task string) (string, error) {
	return s.registry.Start(task, "")
}

// Cancel requests cooperative cancellation of a running workflow.
func (s *Sochen) Cancel(workflowID string) error {
	return s.registry.Cancel(workflowID)
}

// Results returns the latest snapshot of a workflow.
func (s *Sochen) Results(workflowID string) (core.WorkflowState, error) {
	return s.registry.Snapshot(workflowID)
}

// Subscribe streams a workflow's events; call the returned function to stop.
func (s *Sochen) Subscribe(workflowID string) (<-chan core.Event, func(), error) {
	return s.registry.Subscribe(workflowID)
}

// RunWorkflow is a synchronous helper: it starts the task and blocks until
// the terminal snapshot arrives or ctx is cancelled (which also cancels the
// workflow).
func (s *Sochen) RunWorkflow(ctx context.Context, task string) (core.WorkflowState, error) {
	id, err := s.registry.Start(task, "")
	if err != nil {
		return core.WorkflowState{}, err
	}
	events, unsubscribe, err := s.registry.Subscribe(id)
	if err != nil {
		return core.WorkflowState{}, err
	}
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			_ = s.registry.Cancel(id)
			return core.WorkflowState{}, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return core.WorkflowState{}, fmt.Errorf("workflow %q: event stream closed", id)
			}
			if ev.Type == core.EventWorkflowResults && ev.State != nil {
				return *ev.State, nil
			}
		}
	}
}

// Shutdown stops the registry, cancelling running workflows.
func (s *Sochen) Shutdown(ctx context.Context) error {
	return s.registry.Shutdown(ctx)
}
