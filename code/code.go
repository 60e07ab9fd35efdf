// Package code defines the execution hook the tester agent uses to run
// generated code instead of only inspecting it.
package code

// Executor defines the interface for executing code snippets.
type Executor interface {
	// Execute runs the given code snippet and returns the output or an error.
	Execute(code string) (string, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(code string) (string, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(code string) (string, error) { return f(code) }
