package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sochen-ai/sochen/core"
	"github.com/sochen-ai/sochen/internal/util"
)

const reviewerSystem = `You are the reviewer agent in a team of agents that
collaborate on a coding task. Review the files for correctness, style and
maintainability. Respond with a JSON array of issues using the fields
path, line, kind, description, recommendation and blocking. Respond with []
when the code is acceptable.`

const reviewerPrompt = `Task: {{.task}}

Files:
{{.files}}`

// Reviewer inspects the files and owns the code_issues slot. The slot is
// replaced on every visit so issues the coder resolved disappear instead of
// accumulating.
type Reviewer struct{ BaseAgent }

// NewReviewer builds the reviewer agent.
func NewReviewer(optFns ...func(o *Options)) *Reviewer {
	return &Reviewer{newBase(core.AgentReviewer, buildOptions(optFns))}
}

// Contract implements core.Agent.
func (r *Reviewer) Contract() core.Contract {
	return core.Contract{
		Reads:  []string{core.SlotTask, core.SlotFiles, core.SlotPlan},
		Writes: []string{core.SlotCodeIssues, core.SlotReviewNotes, core.SlotMessages},
	}
}

// Run implements core.Agent.
func (r *Reviewer) Run(ctx context.Context, s core.WorkflowState) (core.WorkflowState, error) {
	issues, note, err := r.review(ctx, s)
	if err != nil {
		return s, err
	}
	s.CodeIssues = issues
	s.ReviewNotes = append(s.ReviewNotes, note)

	blocking := 0
	for _, i := range issues {
		if i.Blocking {
			blocking++
		}
	}
	s.AddMessage(r.ID(), fmt.Sprintf("review done: %d issues (%d blocking)", len(issues), blocking))
	return s, nil
}

func (r *Reviewer) review(ctx context.Context, s core.WorkflowState) ([]core.CodeIssue, string, error) {
	if !r.hasModel() {
		return heuristicReview(s), fmt.Sprintf("reviewed %d files", len(s.Files)), nil
	}

	prompt, err := util.RenderTemplate(reviewerPrompt, map[string]any{
		"task":  s.Task,
		"files": fileContents(s),
	})
	if err != nil {
		return nil, "", err
	}
	resp, err := r.generate(ctx, reviewerSystem, prompt)
	if err != nil {
		return nil, "", err
	}

	var issues []core.CodeIssue
	if !decodeList(resp, &issues) {
		// Free-form answer: keep it as a note rather than losing it.
		return nil, resp, nil
	}
	return issues, fmt.Sprintf("reviewed %d files", len(s.Files)), nil
}

// heuristicReview flags leftover work markers; they are worth recording but
// never block the workflow.
func heuristicReview(s core.WorkflowState) []core.CodeIssue {
	var issues []core.CodeIssue
	for path, f := range s.Files {
		for n, line := range strings.Split(f.Content, "\n") {
			if strings.Contains(line, "TODO") || strings.Contains(line, "FIXME") {
				issues = append(issues, core.CodeIssue{
					Path:        path,
					Line:        n + 1,
					Kind:        "MAINTAINABILITY",
					Description: "unresolved work marker: " + strings.TrimSpace(line),
					Blocking:    false,
				})
			}
		}
	}
	return issues
}
