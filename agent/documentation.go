package agent

import (
	"context"

	"github.com/sochen-ai/sochen/core"
	"github.com/sochen-ai/sochen/internal/util"
)

const documentationSystem = `You are the documentation agent in a team of
agents that collaborate on a coding task. Write a concise markdown summary
of what was built: the task, the approach and the resulting files. Respond
with the markdown only.`

const documentationPrompt = `Task: {{.task}}

Plan:
{{.plan}}

Files:
{{.files}}

Test summary: {{.tests}} checks recorded`

const documentationTemplate = `# {{.task}}

## Plan
{{.plan}}

## Files
{{.files}}

## Verification
{{.tests}} checks recorded, {{.failed}} failing.
`

// Documentation closes the happy path: it owns the docs slot and leaves a
// README alongside the generated files.
type Documentation struct{ BaseAgent }

// NewDocumentation builds the documentation agent.
func NewDocumentation(optFns ...func(o *Options)) *Documentation {
	return &Documentation{newBase(core.AgentDocumentation, buildOptions(optFns))}
}

// Contract implements core.Agent.
func (d *Documentation) Contract() core.Contract {
	return core.Contract{
		Reads: []string{
			core.SlotTask, core.SlotPlan, core.SlotFiles,
			core.SlotTestResults, core.SlotReviewNotes,
		},
		Writes: []string{core.SlotDocs, core.SlotFiles, core.SlotMessages},
	}
}

// Run implements core.Agent.
func (d *Documentation) Run(ctx context.Context, s core.WorkflowState) (core.WorkflowState, error) {
	docs, err := d.document(ctx, s)
	if err != nil {
		return s, err
	}
	s.Docs = docs
	s.PutFile(core.CodeFile{Path: "README.md", Content: docs, Language: "markdown"})
	s.AddMessage(d.ID(), "wrote workflow documentation")
	return s, nil
}

func (d *Documentation) document(ctx context.Context, s core.WorkflowState) (string, error) {
	if !d.hasModel() {
		return util.RenderTemplate(documentationTemplate, map[string]any{
			"task":   s.Task,
			"plan":   s.Plan,
			"files":  fileListing(s),
			"tests":  len(s.TestResults),
			"failed": len(s.FailedTests()),
		})
	}

	prompt, err := util.RenderTemplate(documentationPrompt, map[string]any{
		"task":  s.Task,
		"plan":  s.Plan,
		"files": fileListing(s),
		"tests": len(s.TestResults),
	})
	if err != nil {
		return "", err
	}
	return d.generate(ctx, documentationSystem, prompt)
}
