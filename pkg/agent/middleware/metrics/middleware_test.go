package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agenticsearch/pkg/agent/llm"
	"agenticsearch/pkg/agent/llmerrors"
	"agenticsearch/pkg/metrics"
)

type fixedClient struct {
	resp llm.CompletionResponse
	err  error
}

func (f fixedClient) Complete(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	return f.resp, f.err
}

func (f fixedClient) GetModelName() string { return "gemini-test" }

func TestMiddlewareRecordsSuccess(t *testing.T) {
	rec := metrics.NewInternalRecorder()
	usage := func(_ llm.CompletionRequest, _ llm.CompletionResponse) (int, int) { return 7, 3 }
	client := Middleware(rec, usage, nil)(fixedClient{resp: llm.CompletionResponse{Content: "hi"}})

	_, err := client.Complete(llm.WithLabel(context.Background(), "DRAFTING"), llm.CompletionRequest{})
	require.NoError(t, err)

	m := rec.GetModelMetrics("gemini-test")
	require.NotNil(t, m)
	assert.Equal(t, int64(1), m.RequestCount)
	assert.Equal(t, int64(10), m.TotalTokens)
	assert.Equal(t, int64(0), m.ErrorCount)
}

func TestMiddlewareRecordsFailure(t *testing.T) {
	rec := metrics.NewInternalRecorder()
	cause := llmerrors.NewErrorWithStatus(llmerrors.ErrorTypeRateLimit, 429, "slow down")
	client := Middleware(rec, nil, nil)(fixedClient{err: cause})

	_, err := client.Complete(context.Background(), llm.CompletionRequest{})
	assert.Same(t, cause, err)

	m := rec.GetModelMetrics("gemini-test")
	require.NotNil(t, m)
	assert.Equal(t, int64(1), m.ErrorCount)
	assert.Equal(t, int64(0), m.TotalTokens)
}

func TestDefaultUsageExtractor(t *testing.T) {
	req := llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("What is the capital of Australia?")})
	prompt, completion := DefaultUsageExtractor(req, llm.CompletionResponse{Content: "Canberra."})
	assert.Positive(t, prompt)
	assert.Positive(t, completion)
}

func TestErrorTypeLabel(t *testing.T) {
	assert.Equal(t, "", errorTypeLabel(nil))
	assert.Equal(t, "timeout", errorTypeLabel(fmt.Errorf("x: %w", context.DeadlineExceeded)))
	assert.Equal(t, "canceled", errorTypeLabel(context.Canceled))
	assert.Equal(t, "auth", errorTypeLabel(llmerrors.NewError(llmerrors.ErrorTypeAuth, "bad key")))
	assert.Equal(t, "unknown", errorTypeLabel(errors.New("plain")))
}
