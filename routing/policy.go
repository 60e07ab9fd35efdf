// Package routing holds the decision function that selects the next agent
// (or a terminal verdict) after each workflow step.
//
// The policy is a pure function over WorkflowState: no side effects, no I/O,
// no clock. Everything it needs — reported issues, test results, findings and
// the invocation history used for budget accounting — lives in the snapshot,
// which keeps the routing table unit-testable with synthetic states.
package routing

import (
	"fmt"

	"github.com/sochen-ai/sochen/core"
)

// Verdict is the outcome of one routing decision: either the next agent to
// run, or a terminal status (with a reason when the workflow failed).
type Verdict struct {
	Next      core.AgentID
	Terminate bool
	Status    core.Status
	Reason    string
}

// Rule is the allow-list entry for one agent: its happy-path successor, the
// agent that resolves blocking work it reported, and whether its completion
// terminates the workflow.
type Rule struct {
	Next      core.AgentID
	OnBlocked core.AgentID
	Final     bool
}

// Policy is the routing table for the fixed roster plus the iteration
// budgets that bound agent-to-agent looping.
type Policy struct {
	// Entry is the first agent dispatched for a new workflow.
	Entry core.AgentID
	// Rules maps each agent to its allowed successors.
	Rules map[core.AgentID]Rule
	// MaxTotalSteps caps the workflow_history length.
	MaxTotalSteps int
	// MaxAgentRepeats caps invocations of any single agent.
	MaxAgentRepeats int
}

// DefaultPolicy is the production routing table:
//
//	architect → coder → reviewer → tester → security → documentation
//
// with blocking work at review, test or security stages routed back to the
// coder while budget remains.
func DefaultPolicy() Policy {
	return Policy{
		Entry: core.AgentArchitect,
		Rules: map[core.AgentID]Rule{
			core.AgentArchitect:     {Next: core.AgentCoder},
			core.AgentCoder:         {Next: core.AgentReviewer},
			core.AgentReviewer:      {Next: core.AgentTester, OnBlocked: core.AgentCoder},
			core.AgentTester:        {Next: core.AgentSecurity, OnBlocked: core.AgentCoder},
			core.AgentSecurity:      {Next: core.AgentDocumentation, OnBlocked: core.AgentCoder},
			core.AgentRefactorer:    {Next: core.AgentReviewer},
			core.AgentDocumentation: {Final: true},
		},
		MaxTotalSteps:   24,
		MaxAgentRepeats: 4,
	}
}

// Validate checks that every rule target is routable and the entry agent has
// a rule. Called once at registry construction, not per decision.
func (p Policy) Validate() error {
	if p.Entry == "" {
		return fmt.Errorf("routing policy has no entry agent")
	}
	if _, ok := p.Rules[p.Entry]; !ok {
		return fmt.Errorf("entry agent %q has no routing rule", p.Entry)
	}
	for id, r := range p.Rules {
		for _, target := range []core.AgentID{r.Next, r.OnBlocked} {
			if target == "" {
				continue
			}
			if _, ok := p.Rules[target]; !ok {
				return fmt.Errorf("rule for %q targets %q which has no rule", id, target)
			}
		}
		if !r.Final && r.Next == "" {
			return fmt.Errorf("rule for %q is neither final nor has a successor", id)
		}
	}
	if p.MaxTotalSteps <= 0 || p.MaxAgentRepeats <= 0 {
		return fmt.Errorf("iteration budgets must be positive")
	}
	return nil
}

// Decide returns the routing verdict for the post-agent state. The snapshot's
// ActiveAgent is the agent that just finished; its history entry has already
// been appended.
func (p Policy) Decide(s core.WorkflowState) Verdict {
	if s.Error != "" {
		return Verdict{Terminate: true, Status: core.StatusFailed, Reason: s.Error}
	}

	rule, ok := p.Rules[s.ActiveAgent]
	if !ok {
		return Verdict{
			Terminate: true,
			Status:    core.StatusFailed,
			Reason:    fmt.Sprintf("no route from agent %q", s.ActiveAgent),
		}
	}

	next := rule.Next
	if blocked(s) && rule.OnBlocked != "" {
		next = rule.OnBlocked
	} else if rule.Final {
		return Verdict{Terminate: true, Status: core.StatusCompleted}
	}

	if s.Steps() >= p.MaxTotalSteps || s.Invocations(next) >= p.MaxAgentRepeats {
		return Verdict{Terminate: true, Status: core.StatusFailed, Reason: core.ErrIterationLimit.Error()}
	}

	return Verdict{Next: next}
}

// blocked reports whether the agent that just ran left work that must be
// resolved before proceeding on the happy path.
func blocked(s core.WorkflowState) bool {
	switch s.ActiveAgent {
	case core.AgentReviewer:
		return len(s.BlockingIssues()) > 0
	case core.AgentTester:
		return len(s.FailedTests()) > 0
	case core.AgentSecurity:
		return len(s.SevereFindings()) > 0
	default:
		return false
	}
}
