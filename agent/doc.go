// Package agent implements the fixed workflow roster: architect, coder,
// reviewer, tester, refactorer, security and documentation.
//
// Every agent is a pure state transformer over core.WorkflowState. With a
// configured model.Model the agents prompt the provider and fold the
// completion back into the state; without one they fall back to
// deterministic heuristics, which keeps workflows runnable in tests and
// offline environments. Provider failures surface as recoverable errors so
// the coordinator retries them.
package agent
