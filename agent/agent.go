package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/sochen-ai/sochen/code"
	"github.com/sochen-ai/sochen/core"
	"github.com/sochen-ai/sochen/logging"
	"github.com/sochen-ai/sochen/model"
)

// Options configure the roster. A nil Model selects the deterministic
// heuristics; a nil Memory disables recall.
type Options struct {
	Model       model.Model
	Memory      core.MemoryStore
	Logger      logging.Logger
	Executor    code.Executor
	Temperature float64
	MaxTokens   int64
}

// WithModel drives the agents with a language model provider.
func WithModel(m model.Model) func(o *Options) {
	return func(o *Options) { o.Model = m }
}

// WithMemory enables cross-run recall, keyed by task text.
func WithMemory(s core.MemoryStore) func(o *Options) {
	return func(o *Options) { o.Memory = s }
}

// WithLogger overrides the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithExecutor lets the tester actually run file contents instead of only
// shape-checking them.
func WithExecutor(e code.Executor) func(o *Options) {
	return func(o *Options) { o.Executor = e }
}

// WithTemperature overrides the sampling temperature for provider calls.
func WithTemperature(t float64) func(o *Options) {
	return func(o *Options) { o.Temperature = t }
}

func buildOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Logger:      logging.NoOpLogger{},
		Temperature: 0.2,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Roster builds the full agent lineup sharing one configuration, in routing
// order.
func Roster(optFns ...func(o *Options)) []core.Agent {
	return []core.Agent{
		NewArchitect(optFns...),
		NewCoder(optFns...),
		NewReviewer(optFns...),
		NewTester(optFns...),
		NewRefactorer(optFns...),
		NewSecurity(optFns...),
		NewDocumentation(optFns...),
	}
}

// BaseAgent carries the shared identity and provider plumbing. Embed it and
// supply Run plus Contract to satisfy core.Agent.
type BaseAgent struct {
	id   core.AgentID
	opts Options
}

func newBase(id core.AgentID, opts Options) BaseAgent {
	return BaseAgent{id: id, opts: opts}
}

// ID returns the roster identity.
func (b BaseAgent) ID() core.AgentID { return b.id }

func (b BaseAgent) hasModel() bool { return b.opts.Model != nil }

// generate runs one provider call. Provider failures come back wrapped as
// recoverable so the coordinator retries them; context cancellation passes
// through untouched.
func (b BaseAgent) generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := b.opts.Model.Generate(ctx, model.Request{
		System:      system,
		Prompt:      prompt,
		Temperature: b.opts.Temperature,
		MaxTokens:   b.opts.MaxTokens,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", core.Recoverable(err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// recall returns prior knowledge related to the task, newline-joined.
// Memories are keyed by task text so repeated runs of similar tasks share
// context.
func (b BaseAgent) recall(task string) string {
	if b.opts.Memory == nil {
		return ""
	}
	results, err := b.opts.Memory.Search(task, task, 3)
	if err != nil || len(results) == 0 {
		return ""
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, "- "+r.Content)
	}
	return strings.Join(lines, "\n")
}

// remember stores a conclusion for future runs of similar tasks.
func (b BaseAgent) remember(task, content string) {
	if b.opts.Memory == nil || content == "" {
		return
	}
	if err := b.opts.Memory.Store(task, content, map[string]any{"agent": string(b.id)}); err != nil {
		b.opts.Logger.Warn("memory store failed", "agent", string(b.id), "error", err)
	}
}
