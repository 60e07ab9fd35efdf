// Package metrics provides Prometheus-based instrumentation for workflow
// execution. A nil *Metrics is valid and records nothing, so components take
// an optional Metrics without guarding every call site.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the workflow-level collectors.
type Metrics struct {
	workflowsStarted  *prometheus.CounterVec
	workflowsFinished *prometheus.CounterVec
	workflowsActive   prometheus.Gauge
	agentSteps        *prometheus.CounterVec
	agentRetries      *prometheus.CounterVec
	agentStepDuration *prometheus.HistogramVec
	eventsDropped     *prometheus.CounterVec
	subscribersActive prometheus.Gauge
}

// New registers the workflow collectors with the given registerer. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh
// prometheus.NewRegistry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		workflowsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sochen_workflows_started_total",
				Help: "Total number of workflows accepted by the registry",
			},
			nil,
		),
		workflowsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sochen_workflows_finished_total",
				Help: "Total number of workflows reaching a terminal status",
			},
			[]string{"status"},
		),
		workflowsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sochen_workflows_active",
				Help: "Number of workflows currently running",
			},
		),
		agentSteps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sochen_agent_steps_total",
				Help: "Total number of completed agent invocations",
			},
			[]string{"agent"},
		),
		agentRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sochen_agent_retries_total",
				Help: "Total number of retried agent invocations after recoverable errors",
			},
			[]string{"agent"},
		),
		agentStepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sochen_agent_step_duration_seconds",
				Help:    "Duration of agent invocations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"agent"},
		),
		eventsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sochen_events_dropped_total",
				Help: "Total number of events dropped on slow subscriber channels",
			},
			[]string{"workflow_id"},
		),
		subscribersActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sochen_subscribers_active",
				Help: "Number of live event subscriptions",
			},
		),
	}
}

// WorkflowStarted records a workflow accepted by the registry.
func (m *Metrics) WorkflowStarted() {
	if m == nil {
		return
	}
	m.workflowsStarted.WithLabelValues().Inc()
	m.workflowsActive.Inc()
}

// WorkflowFinished records a workflow reaching the given terminal status.
func (m *Metrics) WorkflowFinished(status string) {
	if m == nil {
		return
	}
	m.workflowsFinished.WithLabelValues(status).Inc()
	m.workflowsActive.Dec()
}

// AgentStep records one completed agent invocation and its duration.
func (m *Metrics) AgentStep(agent string, d time.Duration) {
	if m == nil {
		return
	}
	m.agentSteps.WithLabelValues(agent).Inc()
	m.agentStepDuration.WithLabelValues(agent).Observe(d.Seconds())
}

// AgentRetry records a retried invocation after a recoverable error.
func (m *Metrics) AgentRetry(agent string) {
	if m == nil {
		return
	}
	m.agentRetries.WithLabelValues(agent).Inc()
}

// EventDropped records an event discarded on a full subscriber channel.
func (m *Metrics) EventDropped(workflowID string) {
	if m == nil {
		return
	}
	m.eventsDropped.WithLabelValues(workflowID).Inc()
}

// SubscriberAdded records a new live subscription.
func (m *Metrics) SubscriberAdded() {
	if m == nil {
		return
	}
	m.subscribersActive.Inc()
}

// SubscriberRemoved records a closed subscription.
func (m *Metrics) SubscriberRemoved() {
	if m == nil {
		return
	}
	m.subscribersActive.Dec()
}
