package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sochen-ai/sochen/core"
	"github.com/sochen-ai/sochen/internal/util"
)

const securitySystem = `You are the security agent in a team of agents that
collaborate on a coding task. Audit the files for vulnerabilities. Respond
with a JSON array of findings using the fields path, line, severity (LOW,
MEDIUM, HIGH or CRITICAL), description and recommendation. Respond with []
when nothing is wrong.`

const securityPrompt = `Task: {{.task}}

Files:
{{.files}}`

// suspectPatterns is the offline audit: substring, severity, description.
var suspectPatterns = []struct {
	needle      string
	severity    core.Severity
	description string
}{
	{"password =", core.SeverityHigh, "possible hardcoded credential"},
	{"api_key =", core.SeverityHigh, "possible hardcoded API key"},
	{"exec(", core.SeverityMedium, "dynamic execution of generated input"},
	{"eval(", core.SeverityMedium, "dynamic evaluation of generated input"},
	{"http://", core.SeverityLow, "unencrypted transport"},
}

// Security owns the security_findings slot, replaced on every visit so
// fixed findings clear.
type Security struct{ BaseAgent }

// NewSecurity builds the security agent.
func NewSecurity(optFns ...func(o *Options)) *Security {
	return &Security{newBase(core.AgentSecurity, buildOptions(optFns))}
}

// Contract implements core.Agent.
func (a *Security) Contract() core.Contract {
	return core.Contract{
		Reads:  []string{core.SlotTask, core.SlotFiles},
		Writes: []string{core.SlotSecurityFindings, core.SlotMessages},
	}
}

// Run implements core.Agent.
func (a *Security) Run(ctx context.Context, s core.WorkflowState) (core.WorkflowState, error) {
	findings, err := a.audit(ctx, s)
	if err != nil {
		return s, err
	}
	s.SecurityFindings = findings

	severe := len(s.SevereFindings())
	s.AddMessage(a.ID(), fmt.Sprintf("audit done: %d findings (%d severe)", len(findings), severe))
	return s, nil
}

func (a *Security) audit(ctx context.Context, s core.WorkflowState) ([]core.SecurityFinding, error) {
	if !a.hasModel() {
		return heuristicAudit(s), nil
	}

	prompt, err := util.RenderTemplate(securityPrompt, map[string]any{
		"task":  s.Task,
		"files": fileContents(s),
	})
	if err != nil {
		return nil, err
	}
	resp, err := a.generate(ctx, securitySystem, prompt)
	if err != nil {
		return nil, err
	}

	var findings []core.SecurityFinding
	if !decodeList(resp, &findings) {
		return heuristicAudit(s), nil
	}
	return findings, nil
}

func heuristicAudit(s core.WorkflowState) []core.SecurityFinding {
	var findings []core.SecurityFinding
	for path, f := range s.Files {
		for n, line := range strings.Split(f.Content, "\n") {
			for _, p := range suspectPatterns {
				if strings.Contains(line, p.needle) {
					findings = append(findings, core.SecurityFinding{
						Path:        path,
						Line:        n + 1,
						Severity:    p.severity,
						Description: p.description,
					})
				}
			}
		}
	}
	return findings
}
