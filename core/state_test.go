package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestNewWorkflowState(t *testing.T) {
	s := NewWorkflowState("add input validation to parse_int")

	assert.Equal(t, "add input validation to parse_int", s.Task)
	assert.Equal(t, StatusPending, s.Status)
	assert.Empty(t, s.Files)
	assert.Empty(t, s.Messages)
	assert.Empty(t, s.History)
	assert.Empty(t, s.ActiveAgent)
}

func TestWorkflowStateClone_Independence(t *testing.T) {
	s := NewWorkflowState("task")
	s.PutFile(CodeFile{Path: "main.go", Content: "package main", Language: "go"})
	s.AddMessage(AgentCoder, "wrote main.go")
	s.History = append(s.History, HistoryEntry{Agent: AgentCoder, ResultingStatus: StatusRunning})
	s.CodeIssues = []CodeIssue{{Path: "main.go", Kind: "STYLE", Blocking: true}}

	c := s.Clone()
	c.PutFile(CodeFile{Path: "main.go", Content: "changed"})
	c.AddMessage(AgentReviewer, "reviewed")
	c.History = append(c.History, HistoryEntry{Agent: AgentReviewer})
	c.CodeIssues[0].Blocking = false

	assert.Equal(t, "package main", s.Files["main.go"].Content)
	assert.Len(t, s.Messages, 1)
	assert.Len(t, s.History, 1)
	assert.True(t, s.CodeIssues[0].Blocking)
}

func TestWorkflowStateInvocations(t *testing.T) {
	s := NewWorkflowState("task")
	s.History = []HistoryEntry{
		{Agent: AgentCoder},
		{Agent: AgentReviewer},
		{Agent: AgentCoder},
	}

	assert.Equal(t, 3, s.Steps())
	assert.Equal(t, 2, s.Invocations(AgentCoder))
	assert.Equal(t, 1, s.Invocations(AgentReviewer))
	assert.Equal(t, 0, s.Invocations(AgentTester))
}

func TestWorkflowStateBlockingWork(t *testing.T) {
	s := NewWorkflowState("task")
	s.CodeIssues = []CodeIssue{
		{Path: "a.go", Blocking: true},
		{Path: "b.go", Blocking: false},
	}
	s.TestResults = []TestResult{
		{Name: "TestA", Passed: true},
		{Name: "TestB", Passed: false},
	}
	s.SecurityFindings = []SecurityFinding{
		{Path: "a.go", Severity: SeverityLow},
		{Path: "a.go", Severity: SeverityCritical},
	}

	assert.Len(t, s.BlockingIssues(), 1)
	assert.Len(t, s.FailedTests(), 1)
	assert.Len(t, s.SevereFindings(), 1)
	assert.Equal(t, SeverityCritical, s.SevereFindings()[0].Severity)
}
