package llm

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/arbiterlabs/council/types"
)

type countingService struct {
	calls atomic.Int64
}

func (c *countingService) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	c.calls.Add(1)
	return &CompletionResponse{Content: "ok"}, nil
}

func (c *countingService) Name() string { return "counting" }

func TestRateLimited_Passthrough(t *testing.T) {
	t.Parallel()
	inner := &countingService{}
	svc := RateLimited(inner, nil)

	resp, err := svc.Complete(context.Background(), &CompletionRequest{
		Messages: []types.Message{types.NewUserMessage("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, int64(1), inner.calls.Load())
	assert.Equal(t, "counting", svc.Name())
}

func TestRateLimited_WaitsForLimiter(t *testing.T) {
	t.Parallel()
	inner := &countingService{}
	// One token per 50ms, burst of 1: the second call must wait.
	svc := RateLimited(inner, rate.NewLimiter(rate.Every(50*time.Millisecond), 1))

	start := time.Now()
	for i := 0; i < 2; i++ {
		_, err := svc.Complete(context.Background(), &CompletionRequest{})
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestRateLimited_CancelledContext(t *testing.T) {
	t.Parallel()
	inner := &countingService{}
	svc := RateLimited(inner, rate.NewLimiter(rate.Every(time.Hour), 1))

	// Drain the single burst token.
	_, err := svc.Complete(context.Background(), &CompletionRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Complete(ctx, &CompletionRequest{})
	require.Error(t, err)
	assert.Equal(t, int64(1), inner.calls.Load(), "inner service must not be called after cancellation")
}
