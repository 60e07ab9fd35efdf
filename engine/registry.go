package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sochen-ai/sochen/core"
	"github.com/sochen-ai/sochen/logging"
	"github.com/sochen-ai/sochen/metrics"
	"github.com/sochen-ai/sochen/routing"
)

// workflow is the registry's record of one workflow: the latest committed
// snapshot, the coordinator's cancel function and the live subscriptions.
type workflow struct {
	id      string
	cancel  context.CancelFunc
	state   core.WorkflowState
	subs    map[int]chan core.Event
	nextSub int
	evict   *time.Timer
}

// Registry accepts tasks, runs one coordinator per workflow and serves
// snapshots and event subscriptions. All methods are safe for concurrent use.
type Registry struct {
	cfg     Config
	policy  routing.Policy
	agents  map[core.AgentID]core.Agent
	memory  core.MemoryStore
	logger  logging.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	workflows map[string]*workflow
	closed    bool
	wg        sync.WaitGroup

	// baseCtx parents every workflow context so Shutdown can stop them all.
	baseCtx  context.Context
	baseStop context.CancelFunc
}

// minEventBuffer is the smallest usable subscriber channel capacity:
// Subscribe enqueues up to two catch-up events (status plus results for a
// terminal workflow) while holding the registry mutex, so the buffer must
// hold both without blocking.
const minEventBuffer = 2

// New validates the roster against the routing policy and returns a ready
// Registry. Every agent the policy can route to must be present.
func New(roster []core.Agent, optFns ...func(o *Options)) (*Registry, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Config.EventBufferSize < minEventBuffer {
		opts.Config.EventBufferSize = minEventBuffer
	}

	if err := core.ValidateRoster(roster...); err != nil {
		return nil, err
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, err
	}

	agents := make(map[core.AgentID]core.Agent, len(roster))
	for _, a := range roster {
		agents[a.ID()] = a
	}
	for id := range opts.Policy.Rules {
		if _, ok := agents[id]; !ok {
			return nil, fmt.Errorf("routing policy references agent %q which is not in the roster", id)
		}
	}

	baseCtx, baseStop := context.WithCancel(context.Background())
	return &Registry{
		cfg:       opts.Config,
		policy:    opts.Policy,
		agents:    agents,
		memory:    opts.MemoryStore,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		workflows: make(map[string]*workflow),
		baseCtx:   baseCtx,
		baseStop:  baseStop,
	}, nil
}

// Start accepts a task and launches its coordinator. A non-empty workflowID
// is honored (and must be unused); an empty one gets a generated uuid. The
// workflow is committed as RUNNING before Start returns, so an immediate
// Snapshot already reflects acceptance.
//
// The coordinator runs on a context derived from the registry, not from any
// caller context, so workflows survive transport disconnects.
func (r *Registry) Start(task string, workflowID string) (string, error) {
	if task == "" {
		return "", core.ErrEmptyTask
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", core.ErrRegistryClosed
	}
	if workflowID == "" {
		workflowID = uuid.NewString()
	} else if _, exists := r.workflows[workflowID]; exists {
		return "", fmt.Errorf("workflow %q: %w", workflowID, core.ErrWorkflowExists)
	}

	state := core.NewWorkflowState(task)
	state.Status = core.StatusRunning

	ctx, cancel := context.WithCancel(r.baseCtx)
	wf := &workflow{
		id:     workflowID,
		cancel: cancel,
		state:  state,
		subs:   make(map[int]chan core.Event),
	}
	r.workflows[workflowID] = wf

	r.metrics.WorkflowStarted()
	r.logger.Info("workflow accepted", "workflow_id", workflowID)

	r.wg.Add(1)
	go r.run(ctx, workflowID, state)

	return workflowID, nil
}

// Snapshot returns a deep copy of the workflow's latest committed state.
func (r *Registry) Snapshot(workflowID string) (core.WorkflowState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wf, ok := r.workflows[workflowID]
	if !ok {
		return core.WorkflowState{}, fmt.Errorf("workflow %q: %w", workflowID, core.ErrUnknownWorkflow)
	}
	return wf.state.Clone(), nil
}

// Cancel requests cooperative cancellation. The coordinator observes it at
// the next routing boundary and finalizes the workflow as CANCELLED.
// Cancelling an already terminal workflow is a no-op.
func (r *Registry) Cancel(workflowID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	wf, ok := r.workflows[workflowID]
	if !ok {
		return fmt.Errorf("workflow %q: %w", workflowID, core.ErrUnknownWorkflow)
	}
	if wf.state.Status.Terminal() {
		return nil
	}
	r.logger.Info("workflow cancellation requested", "workflow_id", workflowID)
	wf.cancel()
	return nil
}

// Subscribe registers a buffered event channel for the workflow and returns
// it with an unsubscribe function. The current snapshot is delivered as an
// immediate status event (plus a results event when already terminal), so a
// late subscriber needs no replay.
func (r *Registry) Subscribe(workflowID string) (<-chan core.Event, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wf, ok := r.workflows[workflowID]
	if !ok {
		return nil, nil, fmt.Errorf("workflow %q: %w", workflowID, core.ErrUnknownWorkflow)
	}

	ch := make(chan core.Event, r.cfg.EventBufferSize)
	key := wf.nextSub
	wf.nextSub++
	wf.subs[key] = ch
	r.metrics.SubscriberAdded()

	// New enforces EventBufferSize >= minEventBuffer, so the fresh buffer
	// has room for both catch-up events.
	ch <- core.NewStatusEvent(wf.id, wf.state.Status, wf.state.ActiveAgent, "current state")
	if wf.state.Status.Terminal() {
		ch <- core.NewResultsEvent(wf.id, wf.state)
	}

	unsubscribe := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, live := wf.subs[key]; !live {
			return
		}
		delete(wf.subs, key)
		close(ch)
		r.metrics.SubscriberRemoved()
	}
	return ch, unsubscribe, nil
}

// Dispose removes a terminal workflow from the registry, closing any live
// subscriptions. Running workflows cannot be disposed.
func (r *Registry) Dispose(workflowID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	wf, ok := r.workflows[workflowID]
	if !ok {
		return fmt.Errorf("workflow %q: %w", workflowID, core.ErrUnknownWorkflow)
	}
	if !wf.state.Status.Terminal() {
		return fmt.Errorf("workflow %q is still running", workflowID)
	}
	r.disposeLocked(wf)
	return nil
}

// disposeLocked removes the workflow record. Caller holds r.mu.
func (r *Registry) disposeLocked(wf *workflow) {
	if wf.evict != nil {
		wf.evict.Stop()
	}
	for key, ch := range wf.subs {
		delete(wf.subs, key)
		close(ch)
		r.metrics.SubscriberRemoved()
	}
	delete(r.workflows, wf.id)
	r.logger.Debug("workflow evicted", "workflow_id", wf.id)
}

// Shutdown stops accepting work, cancels running workflows and waits for
// their coordinators to finalize, bounded by ctx.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.baseStop()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("registry shutdown: %w", ctx.Err())
	}
}

// commit stores the snapshot as the workflow's latest state and fans the
// given events out to subscribers. Events a full subscriber cannot take are
// dropped; the workflow never blocks on a slow consumer.
func (r *Registry) commit(workflowID string, state core.WorkflowState, events ...core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wf, ok := r.workflows[workflowID]
	if !ok {
		return
	}
	wf.state = state

	for _, ev := range events {
		for _, ch := range wf.subs {
			select {
			case ch <- ev:
			default:
				r.metrics.EventDropped(wf.id)
				r.logger.Warn("event dropped on full subscriber channel",
					"workflow_id", wf.id, "event_type", string(ev.Type))
			}
		}
	}

	if state.Status.Terminal() && wf.evict == nil && r.cfg.Retention > 0 {
		wf.evict = time.AfterFunc(r.cfg.Retention, func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if current, live := r.workflows[workflowID]; live && current == wf {
				r.disposeLocked(wf)
			}
		})
	}
}
