// Package validation provides response validation middleware for LLM clients.
package validation

import (
	"context"
	"strings"

	"agenticsearch/pkg/agent/llm"
	"agenticsearch/pkg/agent/llmerrors"
)

// EmptyResponseMiddleware turns a successful call with blank content into
// an ErrorTypeEmptyResponse error. The call is not repeated.
func EmptyResponseMiddleware() llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				resp, err := next.Complete(ctx, req)
				if err != nil {
					//nolint:wrapcheck // Middleware intentionally passes through errors unchanged
					return resp, err
				}
				if strings.TrimSpace(resp.Content) == "" {
					return resp, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse,
						"model returned no content (stop reason: "+stopReason(resp)+")")
				}
				return resp, nil
			},
			next.GetModelName,
		)
	}
}

func stopReason(resp llm.CompletionResponse) string {
	if resp.StopReason == "" {
		return "unknown"
	}
	return resp.StopReason
}
