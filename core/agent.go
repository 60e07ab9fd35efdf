package core

import (
	"context"
	"fmt"
)

// AgentID identifies one member of the fixed agent roster.
type AgentID string

const (
	AgentArchitect     AgentID = "architect"
	AgentCoder         AgentID = "coder"
	AgentReviewer      AgentID = "reviewer"
	AgentTester        AgentID = "tester"
	AgentRefactorer    AgentID = "refactorer"
	AgentSecurity      AgentID = "security"
	AgentDocumentation AgentID = "documentation"
)

// Slot names for the Contract read/write sets. Slots map 1:1 to
// WorkflowState fields that agents may touch.
const (
	SlotTask             = "task"
	SlotFiles            = "files"
	SlotMessages         = "messages"
	SlotPlan             = "plan"
	SlotCodeIssues       = "code_issues"
	SlotReviewNotes      = "review_notes"
	SlotSecurityFindings = "security_findings"
	SlotTestResults      = "test_results"
	SlotProposedChanges  = "proposed_changes"
	SlotDocs             = "docs"
)

// sharedSlots may be written by more than one agent. Files accumulate
// contributions from Coder, Refactorer and Documentation; messages form the
// common audit trail. Every other slot has exactly one producer.
var sharedSlots = map[string]bool{
	SlotFiles:    true,
	SlotMessages: true,
}

// Agent is the pluggable capability driven by the workflow coordinator.
//
// Run receives an independent snapshot and returns the updated snapshot; it
// must not retain references to either across calls. Run is treated as a
// non-interruptible unit of work: cancellation is honored between
// invocations, not inside one, so implementations should still respect ctx
// for long provider calls to bound their own latency.
//
// Errors returned from Run are classified by the taxonomy in errors.go:
// errors wrapped with Recoverable are retried with backoff, everything else
// is fatal and fails the workflow.
type Agent interface {
	ID() AgentID
	Run(ctx context.Context, state WorkflowState) (WorkflowState, error)
	Contract() Contract
}

// Contract declares which state slots an agent reads and writes. The
// registry checks contracts at wiring time so a slot collision between two
// agents is a construction error rather than a silent overwrite at runtime.
type Contract struct {
	Reads  []string
	Writes []string
}

// ValidateRoster verifies that agent ids are unique and that no exclusive
// slot is written by more than one agent.
func ValidateRoster(agents ...Agent) error {
	ids := map[AgentID]bool{}
	writers := map[string]AgentID{}
	for _, a := range agents {
		if ids[a.ID()] {
			return fmt.Errorf("duplicate agent id %q", a.ID())
		}
		ids[a.ID()] = true
		for _, slot := range a.Contract().Writes {
			if sharedSlots[slot] {
				continue
			}
			if prev, ok := writers[slot]; ok {
				return fmt.Errorf("slot %q written by both %q and %q", slot, prev, a.ID())
			}
			writers[slot] = a.ID()
		}
	}
	return nil
}
