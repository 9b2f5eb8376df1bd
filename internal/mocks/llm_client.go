package mocks

import (
	"context"
	"sync"

	"agenticsearch/pkg/agent/llm"
)

// MockLLMClient implements llm.LLMClient for testing.
// It provides configurable behavior for Complete and records every call.
//
//nolint:govet // fieldalignment: mock struct layout optimized for readability
type MockLLMClient struct {
	// CompleteFunc is called when Complete is invoked. Override to customize behavior.
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error)

	// CompleteCalls tracks all calls to Complete for verification.
	CompleteCalls []llm.CompletionRequest

	// Labels tracks the stage label carried by each call's context.
	Labels []string

	// modelName is the model name returned by GetModelName.
	modelName string

	// mu protects call tracking slices
	mu sync.Mutex
}

// NewMockLLMClient creates a new mock LLM client with default behavior.
// Default behavior: Complete returns a fixed text response.
func NewMockLLMClient() *MockLLMClient {
	m := &MockLLMClient{
		modelName: "mock-model",
	}
	m.CompleteFunc = func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{
			Content:    "Mock response",
			StopReason: "end_turn",
		}, nil
	}
	return m
}

// Complete implements llm.LLMClient.
func (m *MockLLMClient) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	m.mu.Lock()
	m.CompleteCalls = append(m.CompleteCalls, req)
	m.Labels = append(m.Labels, llm.LabelFrom(ctx))
	fn := m.CompleteFunc
	m.mu.Unlock()
	return fn(ctx, req)
}

// GetModelName implements llm.LLMClient.
func (m *MockLLMClient) GetModelName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modelName
}

// CallCount returns the number of Complete calls so far.
func (m *MockLLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CompleteCalls)
}

// LastRequest returns the most recent request, or the zero value.
func (m *MockLLMClient) LastRequest() llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.CompleteCalls) == 0 {
		return llm.CompletionRequest{}
	}
	return m.CompleteCalls[len(m.CompleteCalls)-1]
}

// --- Configuration methods ---

// SetModelName sets the model name returned by GetModelName.
func (m *MockLLMClient) SetModelName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelName = name
}

// OnComplete sets a custom handler for Complete calls.
func (m *MockLLMClient) OnComplete(fn func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteFunc = fn
}

// --- Error simulation helpers ---

// FailCompleteWith configures Complete to return the specified error.
func (m *MockLLMClient) FailCompleteWith(err error) {
	m.OnComplete(func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{}, err
	})
}

// BlockUntilCancelled configures Complete to wait for its context to end.
// started, when non-nil, is closed on the first call.
func (m *MockLLMClient) BlockUntilCancelled(started chan<- struct{}) {
	var once sync.Once
	m.OnComplete(func(ctx context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		if started != nil {
			once.Do(func() { close(started) })
		}
		<-ctx.Done()
		return llm.CompletionResponse{}, ctx.Err()
	})
}

// --- Response helpers ---

// RespondWith configures Complete to return the specified content.
func (m *MockLLMClient) RespondWith(content string) {
	m.RespondWithCitations(content, nil)
}

// RespondWithCitations configures Complete to return content with grounding citations.
func (m *MockLLMClient) RespondWithCitations(content string, citations []llm.Citation) {
	m.OnComplete(func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{
			Content:    content,
			Citations:  citations,
			StopReason: "end_turn",
		}, nil
	})
}

// RespondWithSequence configures Complete to return different responses for each call.
// Cycles through the responses in order, returning the last one for any additional calls.
func (m *MockLLMClient) RespondWithSequence(responses []llm.CompletionResponse) {
	var mu sync.Mutex
	callIndex := 0
	m.OnComplete(func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		mu.Lock()
		defer mu.Unlock()
		if callIndex < len(responses) {
			resp := responses[callIndex]
			callIndex++
			return resp, nil
		}
		return responses[len(responses)-1], nil
	})
}
