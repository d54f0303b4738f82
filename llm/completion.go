package llm

import (
	"context"
	"time"

	"github.com/arbiterlabs/council/types"
)

// CompletionRequest describes one completion call.
//
// Budget carries the output-length policy structurally: enforced budgets map
// to the transport's hard max-token parameter, advisory and unbounded budgets
// send no cap (advisory targets are rendered into the instruction text by the
// prompt composer, not here).
type CompletionRequest struct {
	TraceID  string             `json:"trace_id,omitempty"`
	Model    string             `json:"model,omitempty"`
	System   string             `json:"system,omitempty"`
	Messages []types.Message    `json:"messages"`
	Budget   types.OutputBudget `json:"-"`
	Metadata map[string]string  `json:"metadata,omitempty"`
}

// CompletionResponse is the result of one completion call.
type CompletionResponse struct {
	Content   string           `json:"content"`
	Reasoning string           `json:"reasoning,omitempty"`
	Model     string           `json:"model,omitempty"`
	Usage     types.TokenUsage `json:"usage,omitempty"`
	CreatedAt time.Time        `json:"created_at,omitempty"`
}

// HealthStatus reports the outcome of a provider health probe.
type HealthStatus struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
}

// CompletionService is the minimal contract the orchestrator consumes.
// Implementations must be safe for concurrent use: the council fans out one
// call per persona from independent goroutines.
type CompletionService interface {
	// Complete issues a synchronous completion request.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the service's unique identifier.
	Name() string
}
