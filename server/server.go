// Package server exposes the workflow registry over a WebSocket endpoint
// plus plain HTTP health and metrics endpoints.
//
// Protocol: clients send JSON commands (start_workflow, cancel_workflow,
// get_workflow_results, subscribe) and receive JSON events (status,
// workflow_results, error). A failed command answers with an error event and
// leaves the connection open. Workflows run on registry-owned contexts, so
// closing a connection never interrupts the work it started.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sochen-ai/sochen/core"
	"github.com/sochen-ai/sochen/engine"
	"github.com/sochen-ai/sochen/logging"
)

// Options configures a Server instance.
type Options struct {
	// Logger provides structured logging. Defaults to NoOpLogger.
	Logger logging.Logger

	// OutBufferSize is the per-connection outbound event queue capacity.
	OutBufferSize int

	// InsecureSkipVerify disables the websocket origin check, for tests
	// and same-host tooling.
	InsecureSkipVerify bool
}

// WithLogger overrides the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithInsecureSkipVerify disables the origin check.
func WithInsecureSkipVerify() func(o *Options) {
	return func(o *Options) { o.InsecureSkipVerify = true }
}

// Server bridges WebSocket connections to the workflow registry.
type Server struct {
	registry *engine.Registry
	logger   logging.Logger
	opts     Options
}

// New creates a Server for the given registry.
func New(registry *engine.Registry, optFns ...func(o *Options)) *Server {
	opts := Options{
		Logger:        logging.NoOpLogger{},
		OutBufferSize: 256,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Server{registry: registry, logger: opts.Logger, opts: opts}
}

// Handler returns the HTTP mux: /ws for the workflow protocol, /healthz for
// liveness and /metrics for Prometheus scraping.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	httpSrv := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return s.registry.Shutdown(shutdownCtx)
}

// session is the per-connection state: the single writer queue and the
// subscriptions to tear down on close.
type session struct {
	srv        *Server
	conn       *websocket.Conn
	out        chan core.Event
	mu         sync.Mutex
	unsubs     []func()
	subscribed map[string]bool
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	acceptOpts := &websocket.AcceptOptions{InsecureSkipVerify: s.opts.InsecureSkipVerify}
	conn, err := websocket.Accept(w, r, acceptOpts)
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}

	sess := &session{
		srv:        s,
		conn:       conn,
		out:        make(chan core.Event, s.opts.OutBufferSize),
		subscribed: make(map[string]bool),
	}
	sess.serve(r.Context())
}

// serve runs the read loop and a single writer goroutine. All outbound
// traffic funnels through sess.out because the websocket does not support
// concurrent writes.
func (sess *session) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer sess.teardown()

	go sess.writeLoop(ctx, cancel)

	for {
		_, data, err := sess.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return
			}
			if ctx.Err() == nil {
				sess.srv.logger.Debug("websocket read ended", "error", err)
			}
			return
		}

		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			sess.send(ctx, core.NewErrorEvent("", "malformed command: "+err.Error()))
			continue
		}
		sess.dispatch(ctx, cmd)
	}
}

func (sess *session) writeLoop(ctx context.Context, cancel context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			sess.conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev := <-sess.out:
			data, err := json.Marshal(ev)
			if err != nil {
				sess.srv.logger.Error("event marshal failed", "error", err)
				continue
			}
			if err := sess.conn.Write(ctx, websocket.MessageText, data); err != nil {
				cancel()
				return
			}
		}
	}
}

// send queues an event for the writer, giving up when the connection dies.
func (sess *session) send(ctx context.Context, ev core.Event) {
	select {
	case sess.out <- ev:
	case <-ctx.Done():
	}
}

func (sess *session) dispatch(ctx context.Context, cmd command) {
	switch cmd.Type {
	case cmdStartWorkflow:
		sess.startWorkflow(ctx, cmd)
	case cmdCancelWorkflow:
		sess.cancelWorkflow(ctx, cmd)
	case cmdGetWorkflowResults:
		sess.getResults(ctx, cmd)
	case cmdSubscribe:
		sess.subscribe(ctx, cmd.WorkflowID)
	default:
		sess.send(ctx, core.NewErrorEvent(cmd.WorkflowID, "unknown command type: "+cmd.Type))
	}
}

// startWorkflow accepts the task and subscribes the caller, whose first
// event is the RUNNING snapshot.
func (sess *session) startWorkflow(ctx context.Context, cmd command) {
	id, err := sess.srv.registry.Start(cmd.Task, cmd.WorkflowID)
	if err != nil {
		sess.send(ctx, core.NewErrorEvent(cmd.WorkflowID, err.Error()))
		return
	}
	sess.subscribe(ctx, id)
}

// cancelWorkflow acknowledges the request and subscribes the caller so the
// terminal CANCELLED snapshot reaches it even without a prior subscribe.
// Cancellation is cooperative, so the acknowledgement typically still shows
// RUNNING.
func (sess *session) cancelWorkflow(ctx context.Context, cmd command) {
	if err := sess.srv.registry.Cancel(cmd.WorkflowID); err != nil {
		sess.send(ctx, core.NewErrorEvent(cmd.WorkflowID, err.Error()))
		return
	}
	snap, err := sess.srv.registry.Snapshot(cmd.WorkflowID)
	if err != nil {
		sess.send(ctx, core.NewErrorEvent(cmd.WorkflowID, err.Error()))
		return
	}
	sess.send(ctx, core.NewStatusEvent(cmd.WorkflowID, snap.Status, snap.ActiveAgent, "cancellation requested"))

	sess.mu.Lock()
	already := sess.subscribed[cmd.WorkflowID]
	sess.mu.Unlock()
	if !already {
		sess.subscribe(ctx, cmd.WorkflowID)
	}
}

func (sess *session) getResults(ctx context.Context, cmd command) {
	snap, err := sess.srv.registry.Snapshot(cmd.WorkflowID)
	if err != nil {
		sess.send(ctx, core.NewErrorEvent(cmd.WorkflowID, err.Error()))
		return
	}
	sess.send(ctx, core.NewResultsEvent(cmd.WorkflowID, snap))
}

// subscribe pumps registry events for the workflow into the connection
// until either side closes.
func (sess *session) subscribe(ctx context.Context, workflowID string) {
	events, unsubscribe, err := sess.srv.registry.Subscribe(workflowID)
	if err != nil {
		sess.send(ctx, core.NewErrorEvent(workflowID, err.Error()))
		return
	}

	sess.mu.Lock()
	sess.unsubs = append(sess.unsubs, unsubscribe)
	sess.subscribed[workflowID] = true
	sess.mu.Unlock()

	go func() {
		for ev := range events {
			sess.send(ctx, ev)
		}
	}()
}

// teardown releases every subscription held by the connection.
func (sess *session) teardown() {
	sess.mu.Lock()
	unsubs := sess.unsubs
	sess.unsubs = nil
	sess.mu.Unlock()
	for _, unsubscribe := range unsubs {
		unsubscribe()
	}
	sess.conn.Close(websocket.StatusNormalClosure, "")
}
