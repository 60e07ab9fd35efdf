package agent

import (
	"context"
	"fmt"

	"github.com/sochen-ai/sochen/core"
	"github.com/sochen-ai/sochen/internal/util"
)

const refactorerSystem = `You are the refactorer agent in a team of agents
that collaborate on a coding task. Suggest structural improvements without
changing behavior. Respond with a JSON array of changes using the fields
path and description.`

const refactorerPrompt = `Task: {{.task}}

Open review issues:
{{.issues}}

Files:
{{.files}}`

// Refactorer owns the proposed_changes slot.
type Refactorer struct{ BaseAgent }

// NewRefactorer builds the refactorer agent.
func NewRefactorer(optFns ...func(o *Options)) *Refactorer {
	return &Refactorer{newBase(core.AgentRefactorer, buildOptions(optFns))}
}

// Contract implements core.Agent.
func (r *Refactorer) Contract() core.Contract {
	return core.Contract{
		Reads:  []string{core.SlotTask, core.SlotFiles, core.SlotCodeIssues},
		Writes: []string{core.SlotProposedChanges, core.SlotMessages},
	}
}

// Run implements core.Agent.
func (r *Refactorer) Run(ctx context.Context, s core.WorkflowState) (core.WorkflowState, error) {
	changes, err := r.propose(ctx, s)
	if err != nil {
		return s, err
	}
	s.ProposedChanges = changes
	s.AddMessage(r.ID(), fmt.Sprintf("proposed %d changes", len(changes)))
	return s, nil
}

func (r *Refactorer) propose(ctx context.Context, s core.WorkflowState) ([]core.Change, error) {
	if !r.hasModel() {
		// Without a provider, turn open non-blocking issues into proposals.
		var changes []core.Change
		for _, issue := range s.CodeIssues {
			if issue.Blocking {
				continue
			}
			changes = append(changes, core.Change{Path: issue.Path, Description: issue.Description})
		}
		return changes, nil
	}

	prompt, err := util.RenderTemplate(refactorerPrompt, map[string]any{
		"task":   s.Task,
		"issues": describeIssues(s.CodeIssues),
		"files":  fileContents(s),
	})
	if err != nil {
		return nil, err
	}
	resp, err := r.generate(ctx, refactorerSystem, prompt)
	if err != nil {
		return nil, err
	}

	var changes []core.Change
	decodeList(resp, &changes)
	return changes, nil
}
