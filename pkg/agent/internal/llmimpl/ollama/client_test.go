package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agenticsearch/pkg/agent/llm"
	"agenticsearch/pkg/agent/llmerrors"
)

func TestNewOllamaClientWithModel(t *testing.T) {
	tests := []struct {
		name     string
		hostURL  string
		model    string
		wantHost string
	}{
		{name: "valid host and model", hostURL: "http://localhost:11434", model: "llama3.1:8b", wantHost: "http://localhost:11434"},
		{name: "custom host", hostURL: "http://gpu-box:11434", model: "qwen2.5", wantHost: "http://gpu-box:11434"},
		{name: "empty host falls back", hostURL: "", model: "llama3.1:8b", wantHost: DefaultHost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewOllamaClientWithModel(tt.hostURL, tt.model)
			require.NotNil(t, client)
			assert.Equal(t, tt.model, client.GetModelName())
			assert.Equal(t, tt.wantHost, client.(*Client).hostURL)
		})
	}
}

func TestConvertMessagesToOllama(t *testing.T) {
	msgs, err := convertMessagesToOllama([]llm.CompletionMessage{
		llm.NewSystemMessage("be brief"),
		llm.NewUserMessage("hi"),
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "hi", msgs[1].Content)

	_, err = convertMessagesToOllama(nil)
	assert.Error(t, err)

	_, err = convertMessagesToOllama([]llm.CompletionMessage{{Role: "tool", Content: "x"}})
	assert.Error(t, err)
}

func TestBuildRequestSetsFormatForSchema(t *testing.T) {
	c := NewOllamaClientWithModel("", "llama3.1:8b").(*Client)
	schema := &llm.Schema{
		Name:       "routing_decision",
		Properties: map[string]llm.Property{"agent": {Type: "string", Enum: []string{"Search", "General"}}},
		Required:   []string{"agent"},
	}

	req, err := c.buildRequest(llm.NewStructuredRequest(schema, llm.NewUserMessage("q")))
	require.NoError(t, err)
	require.NotEmpty(t, req.Format)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(req.Format, &decoded))
	assert.Equal(t, "object", decoded["type"])
	assert.False(t, *req.Stream)

	plain, err := c.buildRequest(llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("q")}))
	require.NoError(t, err)
	assert.Empty(t, plain.Format)
}

func TestCompleteAgainstServer(t *testing.T) {
	var got api.ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3.1:8b","message":{"role":"assistant","content":"{\"agent\":\"General\"}"},"done":true,"done_reason":"stop"}` + "\n"))
	}))
	defer srv.Close()

	client := NewOllamaClientWithModel(srv.URL, "llama3.1:8b")
	req := llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("route me")})
	req.Grounding = true

	resp, err := client.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, `{"agent":"General"}`, resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Empty(t, resp.Citations)
	assert.Equal(t, "llama3.1:8b", got.Model)
}

func TestCompleteModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"missing\" not found, try pulling it first"}`))
	}))
	defer srv.Close()

	client := NewOllamaClientWithModel(srv.URL, "missing")
	_, err := client.Complete(context.Background(), llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("q")}))
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeBadPrompt))
}

func TestGetStopReason(t *testing.T) {
	tests := []struct {
		name string
		resp api.ChatResponse
		want string
	}{
		{"not done", api.ChatResponse{Done: false}, "incomplete"},
		{"stop", api.ChatResponse{Done: true, DoneReason: "stop"}, "end_turn"},
		{"empty reason", api.ChatResponse{Done: true}, "end_turn"},
		{"length", api.ChatResponse{Done: true, DoneReason: "length"}, "max_tokens"},
		{"other", api.ChatResponse{Done: true, DoneReason: "load"}, "load"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getStopReason(&tt.resp))
		})
	}
}

func TestClassifyError(t *testing.T) {
	assert.NoError(t, classifyError(nil))

	err := classifyError(errors.New("dial tcp 127.0.0.1:11434: connect: connection refused"))
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeTransient))

	err = classifyError(api.StatusError{StatusCode: http.StatusTooManyRequests, ErrorMessage: "busy"})
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeRateLimit))

	err = classifyError(context.Canceled)
	assert.True(t, errors.Is(err, context.Canceled))
}
