package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedService gates an inner CompletionService behind a token-bucket
// limiter. Fan-out issues one call per persona at once; the limiter smooths
// the burst so upstream per-second quotas are not tripped.
type RateLimitedService struct {
	inner   CompletionService
	limiter *rate.Limiter
}

// RateLimited wraps svc so that each Complete call first waits on the
// limiter. A nil limiter disables the gate.
func RateLimited(svc CompletionService, limiter *rate.Limiter) *RateLimitedService {
	return &RateLimitedService{inner: svc, limiter: limiter}
}

// Complete waits for limiter clearance, then delegates to the inner service.
// Context cancellation during the wait surfaces as the context's error.
func (s *RateLimitedService) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return s.inner.Complete(ctx, req)
}

// Name returns the inner service's identifier.
func (s *RateLimitedService) Name() string {
	return s.inner.Name()
}
