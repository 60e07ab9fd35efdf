// Package model defines the provider-neutral language model contract used by
// the agent roster, plus a scriptable mock for tests. Concrete adapters live
// in the anthropic and openai subpackages.
package model
