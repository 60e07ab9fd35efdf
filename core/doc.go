// Package core contains the domain contracts shared across Sochen: the
// WorkflowState value type handed between agents, the Agent capability
// interface with its declared read/write contract, the outbound event types
// pushed to observers, the error taxonomy, and the MemoryStore abstraction.
//
// The package is intentionally free of orchestration logic. The engine
// package drives execution, the routing package decides successor agents,
// and the server package speaks the wire protocol; all three depend on core
// and never the other way around.
package core
