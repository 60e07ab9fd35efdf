package model

import (
	"context"
	"fmt"
	"sync"
)

// Request is the normalized prompt an agent sends to a provider: a system
// instruction describing the agent's role and a user prompt assembled from
// the workflow state.
type Request struct {
	System      string  `json:"system"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int64   `json:"max_tokens,omitempty"`
}

// TokenUsage captures token accounting for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a complete (non-streaming) completion.
type Response struct {
	Text  string     `json:"text"`
	Usage TokenUsage `json:"usage"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "anthropic", "openai", "mock"
}

// Model is the minimal interface agents use to drive generation. Providers
// return the full completion; agents never consume partial output.
type Model interface {
	Generate(ctx context.Context, req Request) (Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model for tests and examples. Canned
// outcomes are consumed in FIFO order; when the script is exhausted it falls
// back to a deterministic echo of the prompt.
type MockModel struct {
	mu     sync.Mutex
	info   Info
	script []outcome
	calls  []Request
}

type outcome struct {
	text string
	err  error
}

// NewMockModel constructs an empty-scripted MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{info: Info{Name: name, Provider: "mock"}}
}

// QueueResponse appends a canned completion to the script.
func (m *MockModel) QueueResponse(text string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, outcome{text: text})
	return m
}

// QueueError appends a canned failure to the script.
func (m *MockModel) QueueError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, outcome{err: err})
	return m
}

// Calls returns the requests seen so far, in order.
func (m *MockModel) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		if next.err != nil {
			return Response{}, next.err
		}
		return Response{Text: next.text}, nil
	}
	return Response{Text: fmt.Sprintf("mock completion for: %s", req.Prompt)}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
