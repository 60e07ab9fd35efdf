package core

import "time"

// Status describes the lifecycle phase of a workflow. Transitions are
// monotone: PENDING → RUNNING → one of the terminal statuses. A terminal
// status is never left.
type Status string

const (
	// StatusPending is the initial status before the first agent dispatch.
	StatusPending Status = "PENDING"
	// StatusRunning indicates an agent currently holds the execution turn.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the terminal agent finished successfully.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates a fatal agent error or an exhausted iteration budget.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates a cooperative cancellation was honored.
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether the status has no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Severity grades a security finding.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// CodeFile is a generated or modified source file tracked in workflow state.
type CodeFile struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

// Message is one entry of the append-only audit trail. Insertion order is
// authoritative and must never be reordered or pruned.
type Message struct {
	Agent     AgentID   `json:"agent"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryEntry records a single agent invocation. Exactly one entry is
// appended per invocation; the history length is the sole source of truth
// for iteration counting.
type HistoryEntry struct {
	Agent           AgentID   `json:"agent_id"`
	EnteredAt       time.Time `json:"entered_at"`
	ExitedAt        time.Time `json:"exited_at"`
	ResultingStatus Status    `json:"resulting_status"`
}

// CodeIssue is a quality problem reported by the Reviewer. Blocking issues
// route the workflow back to the Coder.
type CodeIssue struct {
	Path           string `json:"path"`
	Line           int    `json:"line"`
	Kind           string `json:"kind"` // STYLE, PERFORMANCE, MAINTAINABILITY, BUG
	Description    string `json:"description"`
	Recommendation string `json:"recommendation,omitempty"`
	Blocking       bool   `json:"blocking"`
}

// SecurityFinding is a vulnerability reported by the Security agent.
// HIGH and CRITICAL findings count as blocking work.
type SecurityFinding struct {
	Path           string   `json:"path"`
	Line           int      `json:"line"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// TestResult is the outcome of one test reported by the Tester agent.
type TestResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// Change describes a proposed modification recorded by the Coder or
// Refactorer so downstream agents know what to inspect.
type Change struct {
	Path        string `json:"path"`
	Description string `json:"description"`
}

// WorkflowState is the canonical data object for a single workflow run.
//
// It has value semantics at every boundary crossing: an agent receives an
// independent snapshot, computes a new one and returns it. The coordinator
// is the only component that replaces the current snapshot, so no field
// level locking exists or is needed. Once Status is terminal the snapshot
// is immutable.
type WorkflowState struct {
	Task   string `json:"task"`
	Status Status `json:"status"`

	Files    map[string]CodeFile `json:"files"`
	Messages []Message           `json:"messages"`
	History  []HistoryEntry      `json:"workflow_history"`

	// Agent result slots. Each is owned exclusively by its producing agent
	// (see Contract); downstream agents and the routing policy read them.
	Plan             string            `json:"plan,omitempty"`
	CodeIssues       []CodeIssue       `json:"code_issues,omitempty"`
	ReviewNotes      []string          `json:"review_notes,omitempty"`
	SecurityFindings []SecurityFinding `json:"security_findings,omitempty"`
	TestResults      []TestResult      `json:"test_results,omitempty"`
	ProposedChanges  []Change          `json:"proposed_changes,omitempty"`
	Docs             string            `json:"docs,omitempty"`

	ActiveAgent AgentID `json:"active_agent,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// NewWorkflowState constructs the initial PENDING snapshot for a task.
func NewWorkflowState(task string) WorkflowState {
	return WorkflowState{
		Task:     task,
		Status:   StatusPending,
		Files:    map[string]CodeFile{},
		Messages: []Message{},
		History:  []HistoryEntry{},
	}
}

// Clone returns a deep copy safe for independent mutation. Every hand-off
// between the coordinator and an agent, and every snapshot returned to an
// observer, goes through Clone so no two concurrency units ever share a
// mutable reference.
func (s WorkflowState) Clone() WorkflowState {
	c := s
	c.Files = make(map[string]CodeFile, len(s.Files))
	for k, v := range s.Files {
		c.Files[k] = v
	}
	c.Messages = append([]Message(nil), s.Messages...)
	c.History = append([]HistoryEntry(nil), s.History...)
	c.CodeIssues = append([]CodeIssue(nil), s.CodeIssues...)
	c.ReviewNotes = append([]string(nil), s.ReviewNotes...)
	c.SecurityFindings = append([]SecurityFinding(nil), s.SecurityFindings...)
	c.TestResults = append([]TestResult(nil), s.TestResults...)
	c.ProposedChanges = append([]Change(nil), s.ProposedChanges...)
	return c
}

// AddMessage appends to the audit trail with a UTC timestamp.
func (s *WorkflowState) AddMessage(agent AgentID, content string) {
	s.Messages = append(s.Messages, Message{Agent: agent, Content: content, Timestamp: time.Now().UTC()})
}

// PutFile adds or replaces a file. Files are never deleted, only replaced.
func (s *WorkflowState) PutFile(f CodeFile) {
	if s.Files == nil {
		s.Files = map[string]CodeFile{}
	}
	s.Files[f.Path] = f
}

// Steps returns the number of agent invocations performed so far.
func (s WorkflowState) Steps() int { return len(s.History) }

// Invocations counts how often the given agent appears in the history.
func (s WorkflowState) Invocations(id AgentID) int {
	n := 0
	for _, h := range s.History {
		if h.Agent == id {
			n++
		}
	}
	return n
}

// BlockingIssues returns the subset of code issues flagged as blocking.
func (s WorkflowState) BlockingIssues() []CodeIssue {
	var out []CodeIssue
	for _, i := range s.CodeIssues {
		if i.Blocking {
			out = append(out, i)
		}
	}
	return out
}

// FailedTests returns the subset of test results that did not pass.
func (s WorkflowState) FailedTests() []TestResult {
	var out []TestResult
	for _, t := range s.TestResults {
		if !t.Passed {
			out = append(out, t)
		}
	}
	return out
}

// SevereFindings returns findings of HIGH or CRITICAL severity.
func (s WorkflowState) SevereFindings() []SecurityFinding {
	var out []SecurityFinding
	for _, f := range s.SecurityFindings {
		if f.Severity == SeverityHigh || f.Severity == SeverityCritical {
			out = append(out, f)
		}
	}
	return out
}
