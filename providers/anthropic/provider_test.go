package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arbiterlabs/council/llm"
	"github.com/arbiterlabs/council/providers"
	"github.com/arbiterlabs/council/types"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*Provider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p := New(providers.AnthropicConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "claude-sonnet-4-20250514",
	}, zap.NewNop())
	return p, srv
}

func TestProvider_Complete_Success(t *testing.T) {
	t.Parallel()

	var captured anthropicRequest
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.Equal(t, "/v1/messages", r.URL.Path)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(anthropicResponse{
			ID:    "msg_01",
			Type:  "message",
			Role:  "assistant",
			Model: "claude-sonnet-4-20250514",
			Content: []anthropicContent{
				{Type: "thinking", Thinking: "considering options"},
				{Type: "text", Text: "the answer"},
			},
			StopReason: "end_turn",
			Usage:      &anthropicUsage{InputTokens: 10, OutputTokens: 5},
		})
	})

	resp, err := p.Complete(context.Background(), &llm.CompletionRequest{
		System:   "be concise",
		Messages: []types.Message{types.NewUserMessage("question")},
		Budget:   types.Enforced(8192),
	})
	require.NoError(t, err)

	assert.Equal(t, "the answer", resp.Content)
	assert.Equal(t, "considering options", resp.Reasoning)
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	assert.Equal(t, "be concise", captured.System)
	assert.Equal(t, 8192, captured.MaxTokens, "enforced budget must become the hard max_tokens cap")
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
}

func TestProvider_Complete_SystemMessagesFolded(t *testing.T) {
	t.Parallel()

	var captured anthropicRequest
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContent{{Type: "text", Text: "ok"}},
		})
	})

	_, err := p.Complete(context.Background(), &llm.CompletionRequest{
		System: "primary instruction",
		Messages: []types.Message{
			types.NewSystemMessage("extra context"),
			types.NewUserMessage("question"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "primary instruction\n\nextra context", captured.System)
	require.Len(t, captured.Messages, 1, "system-role history must not reach the messages array")
}

func TestProvider_Complete_BudgetMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		budget types.OutputBudget
		want   int
	}{
		{"Enforced", types.Enforced(4096), 4096},
		{"AdvisoryUsesDefault", types.Advisory(1024), defaultMaxTokens},
		{"UnboundedUsesDefault", types.Unbounded(), defaultMaxTokens},
		{"ZeroValueUsesDefault", types.OutputBudget{}, defaultMaxTokens},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var captured anthropicRequest
			p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
				json.NewEncoder(w).Encode(anthropicResponse{
					Content: []anthropicContent{{Type: "text", Text: "ok"}},
				})
			})

			_, err := p.Complete(context.Background(), &llm.CompletionRequest{
				Messages: []types.Message{types.NewUserMessage("q")},
				Budget:   tt.budget,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, captured.MaxTokens)
		})
	}
}

func TestProvider_Complete_EmptyConversation(t *testing.T) {
	t.Parallel()
	p := New(providers.AnthropicConfig{APIKey: "k"}, nil)

	_, err := p.Complete(context.Background(), &llm.CompletionRequest{})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestProvider_Complete_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  types.ErrorCode
		wantRetry bool
	}{
		{"Unauthorized", 401, `{"type":"error","error":{"type":"authentication_error","message":"bad key"}}`, types.ErrUnauthorized, false},
		{"RateLimited", 429, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, types.ErrRateLimited, true},
		{"QuotaExceeded", 400, `{"type":"error","error":{"type":"invalid_request_error","message":"insufficient credit balance"}}`, types.ErrQuotaExceeded, false},
		{"InvalidRequest", 400, `{"type":"error","error":{"type":"invalid_request_error","message":"bad field"}}`, types.ErrInvalidRequest, false},
		{"Overloaded529", 529, `{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`, types.ErrModelOverloaded, true},
		{"Unavailable", 503, `{"type":"error","error":{"type":"api_error","message":"down"}}`, types.ErrProviderUnavailable, true},
		{"GatewayTimeout", 504, "timeout", types.ErrUpstreamTimeout, true},
		{"ServerError", 500, "boom", types.ErrUpstreamError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := p.Complete(context.Background(), &llm.CompletionRequest{
				Messages: []types.Message{types.NewUserMessage("q")},
			})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, types.GetErrorCode(err))
			assert.Equal(t, tt.wantRetry, types.IsRetryable(err))
		})
	}
}

func TestProvider_Complete_ContextCancelled(t *testing.T) {
	t.Parallel()
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Complete(ctx, &llm.CompletionRequest{
		Messages: []types.Message{types.NewUserMessage("q")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProvider_HealthCheck(t *testing.T) {
	t.Parallel()

	t.Run("Healthy", func(t *testing.T) {
		t.Parallel()
		p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/models", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		})
		status, err := p.HealthCheck(context.Background())
		require.NoError(t, err)
		assert.True(t, status.Healthy)
	})

	t.Run("Unhealthy", func(t *testing.T) {
		t.Parallel()
		p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		status, err := p.HealthCheck(context.Background())
		require.Error(t, err)
		assert.False(t, status.Healthy)
	})
}
