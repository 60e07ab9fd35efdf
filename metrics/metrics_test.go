package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_WorkflowLifecycle(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.WorkflowStarted()
	m.WorkflowStarted()
	m.WorkflowFinished("COMPLETED")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.workflowsStarted.WithLabelValues()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.workflowsFinished.WithLabelValues("COMPLETED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.workflowsActive))
}

func TestMetrics_AgentCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AgentStep("coder", 50*time.Millisecond)
	m.AgentStep("coder", 80*time.Millisecond)
	m.AgentRetry("coder")
	m.EventDropped("wf-1")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.agentSteps.WithLabelValues("coder")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.agentRetries.WithLabelValues("coder")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsDropped.WithLabelValues("wf-1")))
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.WorkflowStarted()
		m.WorkflowFinished("FAILED")
		m.AgentStep("tester", time.Second)
		m.AgentRetry("tester")
		m.EventDropped("wf-1")
		m.SubscriberAdded()
		m.SubscriberRemoved()
	})
}
