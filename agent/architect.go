package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sochen-ai/sochen/core"
	"github.com/sochen-ai/sochen/internal/util"
)

const architectSystem = `You are the architect agent in a team of agents that
collaborate on a coding task. Analyze the task and the current files, then
produce a short numbered implementation plan. Respond with the plan only.`

const architectPrompt = `Task: {{.task}}

Files:
{{.files}}

{{if .recall}}Prior knowledge:
{{.recall}}
{{end}}`

// Architect turns the task into an implementation plan for the rest of the
// roster.
type Architect struct{ BaseAgent }

// NewArchitect builds the architect agent.
func NewArchitect(optFns ...func(o *Options)) *Architect {
	return &Architect{newBase(core.AgentArchitect, buildOptions(optFns))}
}

// Contract implements core.Agent.
func (a *Architect) Contract() core.Contract {
	return core.Contract{
		Reads:  []string{core.SlotTask, core.SlotFiles, core.SlotMessages},
		Writes: []string{core.SlotPlan, core.SlotMessages},
	}
}

// Run implements core.Agent.
func (a *Architect) Run(ctx context.Context, s core.WorkflowState) (core.WorkflowState, error) {
	plan, err := a.plan(ctx, s)
	if err != nil {
		return s, err
	}
	s.Plan = plan
	s.AddMessage(a.ID(), fmt.Sprintf("planned the work:\n%s", plan))
	a.remember(s.Task, "plan: "+plan)
	return s, nil
}

func (a *Architect) plan(ctx context.Context, s core.WorkflowState) (string, error) {
	if !a.hasModel() {
		return heuristicPlan(s.Task), nil
	}
	prompt, err := util.RenderTemplate(architectPrompt, map[string]any{
		"task":   s.Task,
		"files":  fileListing(s),
		"recall": a.recall(s.Task),
	})
	if err != nil {
		return "", err
	}
	return a.generate(ctx, architectSystem, prompt)
}

func heuristicPlan(task string) string {
	steps := []string{
		"1. Clarify the requirement: " + task,
		"2. Implement the change in small, reviewable steps",
		"3. Cover the change with tests",
		"4. Document the outcome",
	}
	return strings.Join(steps, "\n")
}

// fileListing summarizes the current files for prompts, in stable order.
func fileListing(s core.WorkflowState) string {
	if len(s.Files) == 0 {
		return "(none yet)"
	}
	paths := make([]string, 0, len(s.Files))
	for p := range s.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	var b strings.Builder
	for _, p := range paths {
		f := s.Files[p]
		fmt.Fprintf(&b, "- %s (%s, %d bytes)\n", p, f.Language, len(f.Content))
	}
	return strings.TrimRight(b.String(), "\n")
}
