// Package anthropic adapts the Anthropic Messages API to the
// llm.CompletionService contract.
//
// The API differs from OpenAI-style endpoints in several ways:
//  1. Authentication uses the x-api-key header instead of a Bearer token.
//  2. The system instruction travels out-of-band in a dedicated field.
//  3. max_tokens is mandatory on every request.
//  4. Overload is signalled with the non-standard 529 status.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arbiterlabs/council/llm"
	"github.com/arbiterlabs/council/providers"
	"github.com/arbiterlabs/council/types"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 8192
	apiVersion       = "2023-06-01"
)

// Provider implements llm.CompletionService against the Messages API.
type Provider struct {
	cfg    providers.AnthropicConfig
	client *http.Client
	logger *zap.Logger
}

// New creates an Anthropic provider. A zero Timeout defaults to 60s because
// long syntheses can run well past typical HTTP client defaults.
func New(cfg providers.AnthropicConfig, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("component", "anthropic_provider")),
	}
}

func (p *Provider) Name() string { return "anthropic" }

type anthropicMessage struct {
	Role    string             `json:"role"` // user or assistant
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type     string `json:"type"` // text, thinking
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
	MaxTokens int                `json:"max_tokens"`
	Metadata  map[string]string  `json:"metadata,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Content    []anthropicContent `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason"`
	Usage      *anthropicUsage    `json:"usage,omitempty"`
}

type anthropicErrorResp struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) buildHeaders(req *http.Request) {
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// convertMessages splits the unified conversation into the out-of-band system
// instruction and the alternating user/assistant history. System-role
// messages in the history are folded into the instruction.
func convertMessages(system string, msgs []types.Message) (string, []anthropicMessage) {
	parts := make([]string, 0, 1)
	if system != "" {
		parts = append(parts, system)
	}

	out := make([]anthropicMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == types.RoleSystem {
			parts = append(parts, m.Content)
			continue
		}
		if m.Content == "" {
			continue
		}
		out = append(out, anthropicMessage{
			Role:    string(m.Role),
			Content: []anthropicContent{{Type: "text", Text: m.Content}},
		})
	}

	return strings.Join(parts, "\n\n"), out
}

// maxTokensFor maps the output budget onto the mandatory max_tokens field.
// Only enforced budgets set a hard cap; advisory targets live in the prompt
// text and unbounded requests fall back to the configured ceiling.
func maxTokensFor(budget types.OutputBudget, configured int) int {
	if budget.IsEnforced() {
		return budget.Tokens()
	}
	if configured > 0 {
		return configured
	}
	return defaultMaxTokens
}

// Complete issues one Messages API call.
func (p *Provider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	system, messages := convertMessages(req.System, req.Messages)
	if len(messages) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "request has no user or assistant messages").
			WithHTTPStatus(http.StatusBadRequest).
			WithProvider(p.Name())
	}

	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	if model == "" {
		model = defaultModel
	}

	body := anthropicRequest{
		Model:     model,
		Messages:  messages,
		System:    system,
		MaxTokens: maxTokensFor(req.Budget, p.cfg.MaxTokens),
		Metadata:  req.Metadata,
	}

	payload, _ := json.Marshal(body)
	endpoint := fmt.Sprintf("%s/v1/messages", strings.TrimRight(p.cfg.BaseURL, "/"))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, err.Error()).
			WithHTTPStatus(http.StatusBadRequest).
			WithProvider(p.Name())
	}
	p.buildHeaders(httpReq)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, types.NewError(types.ErrUpstreamError, err.Error()).
			WithHTTPStatus(http.StatusBadGateway).
			WithRetryable(true).
			WithProvider(p.Name())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := readErrMsg(resp.Body)
		p.logger.Warn("completion request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("model", model),
		)
		return nil, mapError(resp.StatusCode, msg, p.Name())
	}

	var ar anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, err.Error()).
			WithHTTPStatus(http.StatusBadGateway).
			WithRetryable(true).
			WithProvider(p.Name())
	}

	p.logger.Debug("completion request succeeded",
		zap.String("model", ar.Model),
		zap.Duration("elapsed", time.Since(start)),
	)

	return toCompletionResponse(ar), nil
}

// HealthCheck probes the models endpoint and reports latency.
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	endpoint := fmt.Sprintf("%s/v1/models", strings.TrimRight(p.cfg.BaseURL, "/"))
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := readErrMsg(resp.Body)
		return &llm.HealthStatus{Healthy: false, Latency: latency},
			fmt.Errorf("anthropic health check failed: status=%d msg=%s", resp.StatusCode, msg)
	}
	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

func toCompletionResponse(ar anthropicResponse) *llm.CompletionResponse {
	out := &llm.CompletionResponse{
		Model:     ar.Model,
		CreatedAt: time.Now(),
	}

	var content, reasoning strings.Builder
	for _, block := range ar.Content {
		switch block.Type {
		case "text":
			content.WriteString(block.Text)
		case "thinking":
			reasoning.WriteString(block.Thinking)
		}
	}
	out.Content = content.String()
	out.Reasoning = reasoning.String()

	if ar.Usage != nil {
		out.Usage = types.TokenUsage{
			PromptTokens:     ar.Usage.InputTokens,
			CompletionTokens: ar.Usage.OutputTokens,
			TotalTokens:      ar.Usage.InputTokens + ar.Usage.OutputTokens,
		}
	}
	return out
}

func readErrMsg(body io.Reader) string {
	data, _ := io.ReadAll(body)
	var errResp anthropicErrorResp
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
	}
	return string(data)
}

func mapError(status int, msg string, provider string) *types.Error {
	switch status {
	case http.StatusUnauthorized:
		return &types.Error{Code: types.ErrUnauthorized, Message: msg, HTTPStatus: status, Provider: provider}
	case http.StatusForbidden:
		return &types.Error{Code: types.ErrForbidden, Message: msg, HTTPStatus: status, Provider: provider}
	case http.StatusTooManyRequests:
		return &types.Error{Code: types.ErrRateLimited, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	case http.StatusBadRequest:
		if strings.Contains(msg, "credit") || strings.Contains(msg, "quota") {
			return &types.Error{Code: types.ErrQuotaExceeded, Message: msg, HTTPStatus: status, Provider: provider}
		}
		return &types.Error{Code: types.ErrInvalidRequest, Message: msg, HTTPStatus: status, Provider: provider}
	case http.StatusGatewayTimeout:
		return &types.Error{Code: types.ErrUpstreamTimeout, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return &types.Error{Code: types.ErrProviderUnavailable, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	case 529: // non-standard overload status
		return &types.Error{Code: types.ErrModelOverloaded, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	default:
		return &types.Error{Code: types.ErrUpstreamError, Message: msg, HTTPStatus: status, Retryable: status >= 500, Provider: provider}
	}
}
