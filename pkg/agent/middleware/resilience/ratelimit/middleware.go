package ratelimit

import (
	"context"

	"agenticsearch/pkg/agent/llm"
	"agenticsearch/pkg/metrics"
)

// Middleware returns a middleware function that paces calls through the
// provider's shared limiter before forwarding them.
func Middleware(limiterMap *ProviderLimiterMap, provider string, recorder metrics.Recorder) llm.Middleware {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return func(next llm.LLMClient) llm.LLMClient {
		limiter := limiterMap.GetLimiter(provider)
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				waited, err := limiter.Acquire(ctx)
				if waited {
					recorder.IncThrottle(next.GetModelName(), "outbound_rate")
				}
				if err != nil {
					return llm.CompletionResponse{}, err
				}
				return next.Complete(ctx, req) //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			next.GetModelName,
		)
	}
}
