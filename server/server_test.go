package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sochen-ai/sochen/core"
	"github.com/sochen-ai/sochen/engine"
	"github.com/sochen-ai/sochen/internal/testutil"
	"github.com/sochen-ai/sochen/routing"
	"github.com/sochen-ai/sochen/server"
)

func reviewPolicy() routing.Policy {
	return routing.Policy{
		Entry: core.AgentCoder,
		Rules: map[core.AgentID]routing.Rule{
			core.AgentCoder:    {Next: core.AgentReviewer},
			core.AgentReviewer: {Final: true, OnBlocked: core.AgentCoder},
		},
		MaxTotalSteps:   24,
		MaxAgentRepeats: 4,
	}
}

func newTestServer(t *testing.T, coder, reviewer *testutil.StubAgent) *httptest.Server {
	t.Helper()
	reg, err := engine.New(
		[]core.Agent{coder, reviewer},
		engine.WithPolicy(reviewPolicy()),
		engine.WithConfig(engine.Config{
			EventBufferSize: 32,
			MaxRetries:      1,
			RetryBackoff:    time.Millisecond,
			Retention:       time.Hour,
		}),
	)
	require.NoError(t, err)

	ts := httptest.NewServer(server.New(reg, server.WithInsecureSkipVerify()).Handler())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = reg.Shutdown(ctx)
	})
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func readEvent(t *testing.T, conn *websocket.Conn) core.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var ev core.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

// readUntil skips events until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ core.EventType) core.Event {
	t.Helper()
	for i := 0; i < 50; i++ {
		ev := readEvent(t, conn)
		if ev.Type == typ {
			return ev
		}
	}
	t.Fatalf("no %s event received", typ)
	return core.Event{}
}

func passThroughAgents() (*testutil.StubAgent, *testutil.StubAgent) {
	coder := &testutil.StubAgent{AgentID: core.AgentCoder, RunFunc: func(_ context.Context, s core.WorkflowState) (core.WorkflowState, error) {
		s.PutFile(core.CodeFile{Path: "main.go", Content: "package main", Language: "go"})
		s.AddMessage(core.AgentCoder, "implemented the task")
		return s, nil
	}}
	reviewer := &testutil.StubAgent{AgentID: core.AgentReviewer}
	return coder, reviewer
}

func TestServer_StartWorkflowStreamsToCompletion(t *testing.T) {
	coder, reviewer := passThroughAgents()
	ts := newTestServer(t, coder, reviewer)
	conn := dial(t, ts)

	sendJSON(t, conn, map[string]string{"type": "start_workflow", "task": "build a parser"})

	first := readEvent(t, conn)
	require.Equal(t, core.EventStatus, first.Type)
	assert.Equal(t, core.StatusRunning, first.Status)
	require.NotEmpty(t, first.WorkflowID)

	results := readUntil(t, conn, core.EventWorkflowResults)
	assert.Equal(t, first.WorkflowID, results.WorkflowID)
	require.NotNil(t, results.State)
	assert.Equal(t, core.StatusCompleted, results.State.Status)
	assert.Equal(t, "package main", results.State.Files["main.go"].Content)
	assert.Equal(t, "build a parser", results.State.Task)
}

func TestServer_UnknownWorkflowKeepsConnectionOpen(t *testing.T) {
	coder, reviewer := passThroughAgents()
	ts := newTestServer(t, coder, reviewer)
	conn := dial(t, ts)

	sendJSON(t, conn, map[string]string{"type": "get_workflow_results", "workflow_id": "no-such-id"})

	ev := readEvent(t, conn)
	require.Equal(t, core.EventError, ev.Type)
	assert.Contains(t, ev.Message, "unknown workflow")
	assert.Equal(t, "no-such-id", ev.WorkflowID)

	// The same connection still accepts commands.
	sendJSON(t, conn, map[string]string{"type": "start_workflow", "task": "still alive"})
	ev = readEvent(t, conn)
	assert.Equal(t, core.EventStatus, ev.Type)
}

func TestServer_MalformedAndUnknownCommands(t *testing.T) {
	coder, reviewer := passThroughAgents()
	ts := newTestServer(t, coder, reviewer)
	conn := dial(t, ts)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{not json")))
	ev := readEvent(t, conn)
	assert.Equal(t, core.EventError, ev.Type)
	assert.Contains(t, ev.Message, "malformed command")

	sendJSON(t, conn, map[string]string{"type": "reboot"})
	ev = readEvent(t, conn)
	assert.Equal(t, core.EventError, ev.Type)
	assert.Contains(t, ev.Message, "unknown command type")
}

func TestServer_EmptyTaskRejected(t *testing.T) {
	coder, reviewer := passThroughAgents()
	ts := newTestServer(t, coder, reviewer)
	conn := dial(t, ts)

	sendJSON(t, conn, map[string]string{"type": "start_workflow"})

	ev := readEvent(t, conn)
	require.Equal(t, core.EventError, ev.Type)
	assert.Equal(t, core.ErrEmptyTask.Error(), ev.Message)
}

func TestServer_CancelWorkflow(t *testing.T) {
	started := make(chan struct{})
	coder := &testutil.StubAgent{AgentID: core.AgentCoder, RunFunc: func(ctx context.Context, s core.WorkflowState) (core.WorkflowState, error) {
		close(started)
		<-ctx.Done()
		return s, ctx.Err()
	}}
	reviewer := &testutil.StubAgent{AgentID: core.AgentReviewer}
	ts := newTestServer(t, coder, reviewer)
	conn := dial(t, ts)

	sendJSON(t, conn, map[string]string{"type": "start_workflow", "task": "long task", "workflow_id": "wf-cancel"})
	first := readEvent(t, conn)
	require.Equal(t, core.EventStatus, first.Type)
	<-started

	sendJSON(t, conn, map[string]string{"type": "cancel_workflow", "workflow_id": "wf-cancel"})

	results := readUntil(t, conn, core.EventWorkflowResults)
	require.NotNil(t, results.State)
	assert.Equal(t, core.StatusCancelled, results.State.Status)
}

func TestServer_CancelFromUnsubscribedConnection(t *testing.T) {
	started := make(chan struct{})
	coder := &testutil.StubAgent{AgentID: core.AgentCoder, RunFunc: func(ctx context.Context, s core.WorkflowState) (core.WorkflowState, error) {
		close(started)
		<-ctx.Done()
		return s, ctx.Err()
	}}
	reviewer := &testutil.StubAgent{AgentID: core.AgentReviewer}
	ts := newTestServer(t, coder, reviewer)

	starter := dial(t, ts)
	sendJSON(t, starter, map[string]string{"type": "start_workflow", "task": "long task", "workflow_id": "wf-side-cancel"})
	first := readEvent(t, starter)
	require.Equal(t, core.EventStatus, first.Type)
	<-started

	// The canceller never subscribed; cancel_workflow must still stream the
	// CANCELLED outcome back to it.
	canceller := dial(t, ts)
	sendJSON(t, canceller, map[string]string{"type": "cancel_workflow", "workflow_id": "wf-side-cancel"})

	ack := readEvent(t, canceller)
	require.Equal(t, core.EventStatus, ack.Type)
	assert.Equal(t, "cancellation requested", ack.Message)

	results := readUntil(t, canceller, core.EventWorkflowResults)
	require.NotNil(t, results.State)
	assert.Equal(t, core.StatusCancelled, results.State.Status)
}

func TestServer_SubscribeFromSecondConnection(t *testing.T) {
	release := make(chan struct{})
	coder := &testutil.StubAgent{AgentID: core.AgentCoder, RunFunc: func(ctx context.Context, s core.WorkflowState) (core.WorkflowState, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return s, ctx.Err()
		}
		return s, nil
	}}
	reviewer := &testutil.StubAgent{AgentID: core.AgentReviewer}
	ts := newTestServer(t, coder, reviewer)

	starter := dial(t, ts)
	sendJSON(t, starter, map[string]string{"type": "start_workflow", "task": "observed task", "workflow_id": "wf-obs"})
	first := readEvent(t, starter)
	require.Equal(t, core.StatusRunning, first.Status)

	observer := dial(t, ts)
	sendJSON(t, observer, map[string]string{"type": "subscribe", "workflow_id": "wf-obs"})
	catchup := readEvent(t, observer)
	require.Equal(t, core.EventStatus, catchup.Type)
	assert.Equal(t, core.StatusRunning, catchup.Status)

	close(release)
	results := readUntil(t, observer, core.EventWorkflowResults)
	assert.Equal(t, core.StatusCompleted, results.State.Status)
}

func TestServer_HealthAndMetricsEndpoints(t *testing.T) {
	coder, reviewer := passThroughAgents()
	ts := newTestServer(t, coder, reviewer)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}
