// Package llm defines the completion-service contract consumed by the
// council orchestrator, along with decorators around it.
//
// A CompletionService turns a system instruction plus a conversation into
// generated text. Concrete adapters live under providers/; tests use the
// mock in testutil/mocks.
package llm
