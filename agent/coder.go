package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sochen-ai/sochen/core"
	"github.com/sochen-ai/sochen/internal/util"
)

const coderSystem = `You are the coder agent in a team of agents that
collaborate on a coding task. Implement the task following the plan and fix
every blocking finding you are given. Respond with complete files in fenced
code blocks; put "language path" on each fence line.`

const coderPrompt = `Task: {{.task}}

Plan:
{{.plan}}

{{if .issues}}Blocking review issues:
{{.issues}}
{{end}}{{if .tests}}Failing tests:
{{.tests}}
{{end}}{{if .findings}}Security findings to fix:
{{.findings}}
{{end}}Current files:
{{.files}}`

// Coder writes and rewrites the workflow's files, resolving blocking work
// reported by the reviewer, tester and security agents.
type Coder struct{ BaseAgent }

// NewCoder builds the coder agent.
func NewCoder(optFns ...func(o *Options)) *Coder {
	return &Coder{newBase(core.AgentCoder, buildOptions(optFns))}
}

// Contract implements core.Agent.
func (c *Coder) Contract() core.Contract {
	return core.Contract{
		Reads: []string{
			core.SlotTask, core.SlotPlan, core.SlotFiles,
			core.SlotCodeIssues, core.SlotTestResults, core.SlotSecurityFindings,
		},
		Writes: []string{core.SlotFiles, core.SlotMessages},
	}
}

// Run implements core.Agent.
func (c *Coder) Run(ctx context.Context, s core.WorkflowState) (core.WorkflowState, error) {
	if !c.hasModel() {
		return c.heuristic(s), nil
	}

	prompt, err := util.RenderTemplate(coderPrompt, map[string]any{
		"task":     s.Task,
		"plan":     s.Plan,
		"issues":   describeIssues(s.BlockingIssues()),
		"tests":    describeFailures(s.FailedTests()),
		"findings": describeFindings(s.SevereFindings()),
		"files":    fileContents(s),
	})
	if err != nil {
		return s, err
	}
	resp, err := c.generate(ctx, coderSystem, prompt)
	if err != nil {
		return s, err
	}

	written := extractCodeBlocks(resp, c.focusPath(s))
	if len(written) == 0 {
		s.AddMessage(c.ID(), resp)
		return s, nil
	}
	paths := make([]string, 0, len(written))
	for _, f := range written {
		s.PutFile(f)
		paths = append(paths, f.Path)
	}
	s.AddMessage(c.ID(), "updated files: "+strings.Join(paths, ", "))
	c.remember(s.Task, "implemented: "+strings.Join(paths, ", "))
	return s, nil
}

// heuristic makes deterministic progress without a provider: it creates a
// starter file on the first visit and marks reported blockers as addressed
// on later ones.
func (c *Coder) heuristic(s core.WorkflowState) core.WorkflowState {
	path := c.focusPath(s)
	if _, ok := s.Files[path]; !ok {
		s.PutFile(core.CodeFile{
			Path:     path,
			Content:  fmt.Sprintf("// Task: %s\n\npackage main\n", s.Task),
			Language: "go",
		})
		s.AddMessage(c.ID(), "created "+path)
		return s
	}

	f := s.Files[path]
	for _, issue := range s.BlockingIssues() {
		f.Content += fmt.Sprintf("\n// addressed: %s\n", issue.Description)
	}
	for _, finding := range s.SevereFindings() {
		f.Content += fmt.Sprintf("\n// hardened: %s\n", finding.Description)
	}
	s.PutFile(f)
	s.AddMessage(c.ID(), "reworked "+path)
	return s
}

// focusPath picks the file to work on: the first blocking issue's file,
// else the first existing file, else a fresh main.go.
func (c *Coder) focusPath(s core.WorkflowState) string {
	if issues := s.BlockingIssues(); len(issues) > 0 && issues[0].Path != "" {
		return issues[0].Path
	}
	paths := make([]string, 0, len(s.Files))
	for p := range s.Files {
		paths = append(paths, p)
	}
	if len(paths) > 0 {
		sort.Strings(paths)
		return paths[0]
	}
	return "main.go"
}

func describeIssues(issues []core.CodeIssue) string {
	lines := make([]string, 0, len(issues))
	for _, i := range issues {
		lines = append(lines, fmt.Sprintf("- %s:%d [%s] %s", i.Path, i.Line, i.Kind, i.Description))
	}
	return strings.Join(lines, "\n")
}

func describeFailures(results []core.TestResult) string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("- %s: %s", r.Name, r.Message))
	}
	return strings.Join(lines, "\n")
}

func describeFindings(findings []core.SecurityFinding) string {
	lines := make([]string, 0, len(findings))
	for _, f := range findings {
		lines = append(lines, fmt.Sprintf("- %s:%d [%s] %s", f.Path, f.Line, f.Severity, f.Description))
	}
	return strings.Join(lines, "\n")
}

// fileContents renders full file bodies for prompts, in stable order.
func fileContents(s core.WorkflowState) string {
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
		fmt.Fprintf(&b, "```%s %s\n%s\n```\n", f.Language, p, strings.TrimRight(f.Content, "\n"))
	}
	return strings.TrimRight(b.String(), "\n")
}
