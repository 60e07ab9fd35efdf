package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sochen-ai/sochen/core"
)

// reviewLoopPolicy is the minimal coder→reviewer table used by the
// happy-path and ping-pong tests.
func reviewLoopPolicy(maxRepeats int) Policy {
	return Policy{
		Entry: core.AgentCoder,
		Rules: map[core.AgentID]Rule{
			core.AgentCoder:    {Next: core.AgentReviewer},
			core.AgentReviewer: {Final: true, OnBlocked: core.AgentCoder},
		},
		MaxTotalSteps:   24,
		MaxAgentRepeats: maxRepeats,
	}
}

func stateAfter(history ...core.AgentID) core.WorkflowState {
	s := core.NewWorkflowState("add input validation to parse_int")
	s.Status = core.StatusRunning
	for _, id := range history {
		s.History = append(s.History, core.HistoryEntry{Agent: id, ResultingStatus: core.StatusRunning})
	}
	if len(history) > 0 {
		s.ActiveAgent = history[len(history)-1]
	}
	return s
}

func TestDecide_HappyPathCompletes(t *testing.T) {
	p := reviewLoopPolicy(4)

	v := p.Decide(stateAfter(core.AgentCoder))
	assert.False(t, v.Terminate)
	assert.Equal(t, core.AgentReviewer, v.Next)

	// Reviewer reports zero issues: terminal agent done, workflow complete.
	v = p.Decide(stateAfter(core.AgentCoder, core.AgentReviewer))
	assert.True(t, v.Terminate)
	assert.Equal(t, core.StatusCompleted, v.Status)
}

func TestDecide_BlockingIssuesRouteBackToCoder(t *testing.T) {
	p := reviewLoopPolicy(4)

	s := stateAfter(core.AgentCoder, core.AgentReviewer)
	s.CodeIssues = []core.CodeIssue{{Path: "parse.go", Kind: "BUG", Blocking: true}}

	v := p.Decide(s)
	assert.False(t, v.Terminate)
	assert.Equal(t, core.AgentCoder, v.Next)
}

func TestDecide_RepeatBudgetExhausted(t *testing.T) {
	// Reviewer reports a blocking issue twice in a row with a repeat budget
	// of 2: the second attempt to route back to the coder must fail the
	// workflow instead of looping.
	p := reviewLoopPolicy(2)

	s := stateAfter(core.AgentCoder, core.AgentReviewer, core.AgentCoder, core.AgentReviewer)
	s.CodeIssues = []core.CodeIssue{{Path: "parse.go", Kind: "BUG", Blocking: true}}

	v := p.Decide(s)
	require.True(t, v.Terminate)
	assert.Equal(t, core.StatusFailed, v.Status)
	assert.Equal(t, "iteration_limit_exceeded", v.Reason)
}

func TestDecide_TotalStepBudgetExhausted(t *testing.T) {
	p := reviewLoopPolicy(100)
	p.MaxTotalSteps = 2

	s := stateAfter(core.AgentCoder, core.AgentReviewer)
	s.CodeIssues = []core.CodeIssue{{Path: "parse.go", Blocking: true}}

	v := p.Decide(s)
	require.True(t, v.Terminate)
	assert.Equal(t, core.StatusFailed, v.Status)
	assert.Equal(t, "iteration_limit_exceeded", v.Reason)
}

func TestDecide_ErrorStateFails(t *testing.T) {
	p := DefaultPolicy()
	s := stateAfter(core.AgentCoder)
	s.Error = "coder: malformed state"

	v := p.Decide(s)
	require.True(t, v.Terminate)
	assert.Equal(t, core.StatusFailed, v.Status)
	assert.Equal(t, "coder: malformed state", v.Reason)
}

func TestDecide_UnroutableAgentFails(t *testing.T) {
	p := reviewLoopPolicy(4)
	s := stateAfter(core.AgentTester)

	v := p.Decide(s)
	require.True(t, v.Terminate)
	assert.Equal(t, core.StatusFailed, v.Status)
	assert.Contains(t, v.Reason, "no route")
}

func TestDefaultPolicy_FullHappyPath(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Validate())

	order := []core.AgentID{
		core.AgentArchitect,
		core.AgentCoder,
		core.AgentReviewer,
		core.AgentTester,
		core.AgentSecurity,
		core.AgentDocumentation,
	}

	var history []core.AgentID
	next := p.Entry
	for i, want := range order {
		assert.Equal(t, want, next)
		history = append(history, next)
		v := p.Decide(stateAfter(history...))
		if i == len(order)-1 {
			require.True(t, v.Terminate)
			assert.Equal(t, core.StatusCompleted, v.Status)
			return
		}
		require.False(t, v.Terminate)
		next = v.Next
	}
}

func TestDefaultPolicy_SevereFindingsRouteToCoder(t *testing.T) {
	p := DefaultPolicy()

	s := stateAfter(core.AgentArchitect, core.AgentCoder, core.AgentReviewer, core.AgentTester, core.AgentSecurity)
	s.SecurityFindings = []core.SecurityFinding{{Path: "auth.go", Severity: core.SeverityCritical}}

	v := p.Decide(s)
	require.False(t, v.Terminate)
	assert.Equal(t, core.AgentCoder, v.Next)
}

func TestDefaultPolicy_FailedTestsRouteToCoder(t *testing.T) {
	p := DefaultPolicy()

	s := stateAfter(core.AgentArchitect, core.AgentCoder, core.AgentReviewer, core.AgentTester)
	s.TestResults = []core.TestResult{{Name: "TestParse", Passed: false}}

	v := p.Decide(s)
	require.False(t, v.Terminate)
	assert.Equal(t, core.AgentCoder, v.Next)
}

func TestPolicyValidate(t *testing.T) {
	p := DefaultPolicy()
	assert.NoError(t, p.Validate())

	bad := DefaultPolicy()
	bad.Rules[core.AgentArchitect] = Rule{Next: "unknown"}
	assert.ErrorContains(t, bad.Validate(), "no rule")

	bad = DefaultPolicy()
	bad.MaxTotalSteps = 0
	assert.ErrorContains(t, bad.Validate(), "budgets")

	bad = DefaultPolicy()
	bad.Entry = ""
	assert.Error(t, bad.Validate())
}
