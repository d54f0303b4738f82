// MockCompletion is a test double for llm.CompletionService.
//
// Supports fixed responses, error injection, per-call behavior, artificial
// delays, and full call capture.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/arbiterlabs/council/llm"
	"github.com/arbiterlabs/council/types"
)

// CompletionCall records a single Complete invocation.
type CompletionCall struct {
	Request  *llm.CompletionRequest
	Response *llm.CompletionResponse
	Error    error
}

// MockCompletion is a mock llm.CompletionService.
type MockCompletion struct {
	mu sync.Mutex

	response         string
	reasoning        string
	err              error
	promptTokens     int
	completionTokens int
	delay            time.Duration

	// completeFunc, when set, takes over the whole call.
	completeFunc func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error)

	calls     []CompletionCall
	callCount int
}

// NewMockCompletion creates a mock with a canned response.
func NewMockCompletion() *MockCompletion {
	return &MockCompletion{
		response:         "mock response",
		promptTokens:     10,
		completionTokens: 20,
	}
}

// WithResponse sets the fixed response content.
func (m *MockCompletion) WithResponse(response string) *MockCompletion {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithReasoning sets the fixed reasoning content.
func (m *MockCompletion) WithReasoning(reasoning string) *MockCompletion {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reasoning = reasoning
	return m
}

// WithError makes every call fail with err.
func (m *MockCompletion) WithError(err error) *MockCompletion {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithTokenUsage sets the reported token usage.
func (m *MockCompletion) WithTokenUsage(prompt, completion int) *MockCompletion {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promptTokens = prompt
	m.completionTokens = completion
	return m
}

// WithDelay makes every call sleep before responding (or until the context
// is cancelled, whichever comes first).
func (m *MockCompletion) WithDelay(d time.Duration) *MockCompletion {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithCompleteFunc replaces the canned behavior with fn.
func (m *MockCompletion) WithCompleteFunc(fn func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error)) *MockCompletion {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeFunc = fn
	return m
}

// Complete implements llm.CompletionService.
func (m *MockCompletion) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.mu.Lock()
	m.callCount++
	delay := m.delay
	fn := m.completeFunc
	errOut := m.err
	resp := &llm.CompletionResponse{
		Content:   m.response,
		Reasoning: m.reasoning,
		Usage: types.TokenUsage{
			PromptTokens:     m.promptTokens,
			CompletionTokens: m.completionTokens,
			TotalTokens:      m.promptTokens + m.completionTokens,
		},
		CreatedAt: time.Now(),
	}
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			m.record(req, nil, ctx.Err())
			return nil, ctx.Err()
		}
	}

	if fn != nil {
		r, err := fn(ctx, req)
		m.record(req, r, err)
		return r, err
	}

	if ctx.Err() != nil {
		m.record(req, nil, ctx.Err())
		return nil, ctx.Err()
	}

	if errOut != nil {
		m.record(req, nil, errOut)
		return nil, errOut
	}

	m.record(req, resp, nil)
	return resp, nil
}

// Name implements llm.CompletionService.
func (m *MockCompletion) Name() string { return "mock" }

func (m *MockCompletion) record(req *llm.CompletionRequest, resp *llm.CompletionResponse, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, CompletionCall{Request: req, Response: resp, Error: err})
}

// GetCallCount returns how many times Complete was invoked.
func (m *MockCompletion) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// GetCalls returns a copy of all recorded calls.
func (m *MockCompletion) GetCalls() []CompletionCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CompletionCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// LastCall returns the most recent recorded call, or nil when none.
func (m *MockCompletion) LastCall() *CompletionCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	c := m.calls[len(m.calls)-1]
	return &c
}

// Reset clears recorded calls and the call counter.
func (m *MockCompletion) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.callCount = 0
}
