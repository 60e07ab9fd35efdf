package agent

import (
	"context"
	"fmt"
	"sort"

	"github.com/sochen-ai/sochen/core"
	"github.com/sochen-ai/sochen/internal/util"
)

const testerSystem = `You are the tester agent in a team of agents that
collaborate on a coding task. Assess whether the files satisfy the task and
report test outcomes. Respond with a JSON array of results using the fields
name, passed and message.`

const testerPrompt = `Task: {{.task}}

Files:
{{.files}}`

// Tester owns the test_results slot, replaced on every visit. With an
// Executor configured it runs each file's content; otherwise it relies on
// the provider or a minimal shape check.
type Tester struct{ BaseAgent }

// NewTester builds the tester agent.
func NewTester(optFns ...func(o *Options)) *Tester {
	return &Tester{newBase(core.AgentTester, buildOptions(optFns))}
}

// Contract implements core.Agent.
func (t *Tester) Contract() core.Contract {
	return core.Contract{
		Reads:  []string{core.SlotTask, core.SlotFiles},
		Writes: []string{core.SlotTestResults, core.SlotMessages},
	}
}

// Run implements core.Agent.
func (t *Tester) Run(ctx context.Context, s core.WorkflowState) (core.WorkflowState, error) {
	results, err := t.test(ctx, s)
	if err != nil {
		return s, err
	}
	s.TestResults = results

	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
		}
	}
	s.AddMessage(t.ID(), fmt.Sprintf("ran %d checks, %d failed", len(results), failed))
	return s, nil
}

func (t *Tester) test(ctx context.Context, s core.WorkflowState) ([]core.TestResult, error) {
	if t.opts.Executor != nil {
		return t.execute(s), nil
	}
	if !t.hasModel() {
		return heuristicTests(s), nil
	}

	prompt, err := util.RenderTemplate(testerPrompt, map[string]any{
		"task":  s.Task,
		"files": fileContents(s),
	})
	if err != nil {
		return nil, err
	}
	resp, err := t.generate(ctx, testerSystem, prompt)
	if err != nil {
		return nil, err
	}

	var results []core.TestResult
	if !decodeList(resp, &results) {
		return heuristicTests(s), nil
	}
	return results, nil
}

// execute runs each file through the configured executor and converts the
// outcome into a test result.
func (t *Tester) execute(s core.WorkflowState) []core.TestResult {
	results := make([]core.TestResult, 0, len(s.Files))
	for _, path := range sortedPaths(s) {
		out, err := t.opts.Executor.Execute(s.Files[path].Content)
		r := core.TestResult{Name: "run:" + path, Passed: err == nil, Message: out}
		if err != nil {
			r.Message = err.Error()
		}
		results = append(results, r)
	}
	return results
}

// heuristicTests checks the minimum any file must satisfy: it exists and is
// not empty.
func heuristicTests(s core.WorkflowState) []core.TestResult {
	results := make([]core.TestResult, 0, len(s.Files))
	for _, path := range sortedPaths(s) {
		f := s.Files[path]
		r := core.TestResult{Name: "exists:" + path, Passed: len(f.Content) > 0}
		if !r.Passed {
			r.Message = "file is empty"
		}
		results = append(results, r)
	}
	return results
}

func sortedPaths(s core.WorkflowState) []string {
	paths := make([]string, 0, len(s.Files))
	for p := range s.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
