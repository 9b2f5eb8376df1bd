package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"agenticsearch/pkg/agent/llm"
	"agenticsearch/pkg/agent/llmerrors"
	"agenticsearch/pkg/logx"
)

type fixedClient struct {
	resp llm.CompletionResponse
	err  error
}

func (f fixedClient) Complete(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	return f.resp, f.err
}

func (f fixedClient) GetModelName() string { return "fixed" }

func captureLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logx.SetOutput(core)
	t.Cleanup(func() { logx.SetOutput(nil) })
	return logs
}

func TestMiddlewareLogsFailures(t *testing.T) {
	logs := captureLogs(t)
	client := Middleware(logx.NewLogger("test"))(fixedClient{err: errors.New("503 unavailable")})

	ctx := llm.WithLabel(context.Background(), "ROUTING")
	_, err := client.Complete(ctx, llm.CompletionRequest{})
	require.Error(t, err)

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "stage=ROUTING")
	assert.Contains(t, warnings[0].Message, "503 unavailable")
}

func TestMiddlewareDumpsEmptyResponseRequest(t *testing.T) {
	logs := captureLogs(t)
	client := Middleware(logx.NewLogger("test"))(fixedClient{err: llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty")})

	req := llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("why is the sky blue")})
	_, err := client.Complete(context.Background(), req)
	require.Error(t, err)

	assert.Equal(t, 1, logs.FilterMessageSnippet("why is the sky blue").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("EMPTY RESPONSE").Len())
}

func TestMiddlewarePassesThroughSuccess(t *testing.T) {
	captureLogs(t)
	client := Middleware(nil)(fixedClient{resp: llm.CompletionResponse{Content: "ok"}})

	resp, err := client.Complete(context.Background(), llm.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, "fixed", client.GetModelName())
}
