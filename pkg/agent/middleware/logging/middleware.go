// Package logging provides logging middleware for LLM clients.
package logging

import (
	"context"
	"time"

	"agenticsearch/pkg/agent/llm"
	"agenticsearch/pkg/agent/llmerrors"
	"agenticsearch/pkg/logx"
)

const maxLoggedPrompt = 2000

// Middleware returns a middleware function that logs each call at debug
// level and dumps the request when the provider returns nothing.
func Middleware(logger *logx.Logger) llm.Middleware {
	if logger == nil {
		logger = logx.NewLogger("llm")
	}
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				stage := llm.LabelFrom(ctx)
				schema := "-"
				if req.Schema != nil {
					schema = req.Schema.Name
				}
				logx.Debug(ctx, "llm", "→ %s stage=%s schema=%s grounding=%t messages=%d",
					next.GetModelName(), stage, schema, req.Grounding, len(req.Messages))

				start := time.Now()
				resp, err := next.Complete(ctx, req)
				elapsed := time.Since(start)

				switch {
				case err != nil && llmerrors.Is(err, llmerrors.ErrorTypeEmptyResponse):
					logEmptyResponseDebugInfo(logger, stage, req)
				case err != nil:
					logger.Warn("model call failed: model=%s stage=%s after %s: %v",
						next.GetModelName(), stage, elapsed.Round(time.Millisecond), err)
				default:
					logx.Debug(ctx, "llm", "← %s stage=%s chars=%d citations=%d stop=%s in %s",
						next.GetModelName(), stage, len(resp.Content), len(resp.Citations),
						resp.StopReason, elapsed.Round(time.Millisecond))
				}

				//nolint:wrapcheck // Middleware intentionally passes through errors unchanged
				return resp, err
			},
			next.GetModelName,
		)
	}
}

// logEmptyResponseDebugInfo logs the request that produced an empty response.
//
//nolint:gocritic // request is passed by value like everywhere else in the chain
func logEmptyResponseDebugInfo(logger *logx.Logger, stage string, req llm.CompletionRequest) {
	logger.Error("EMPTY RESPONSE FROM LLM (stage=%s, temperature=%v, max_tokens=%d, grounding=%t)",
		stage, req.Temperature, req.MaxTokens, req.Grounding)
	for i := range req.Messages {
		msg := &req.Messages[i]
		logger.Error("Message [%d] Role: %s, Content: %s", i, msg.Role,
			llmerrors.SanitizePrompt(msg.Content, maxLoggedPrompt))
	}
}
