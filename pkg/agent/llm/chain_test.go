package llm

import (
	"context"
	"testing"
)

type mockLLMClient struct {
	completeFunc     func(context.Context, CompletionRequest) (CompletionResponse, error)
	getModelNameFunc func() string
}

func (m *mockLLMClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	return m.completeFunc(ctx, req)
}

func (m *mockLLMClient) GetModelName() string {
	return m.getModelNameFunc()
}

// TestWrapClient tests the WrapClient helper function.
func TestWrapClient(t *testing.T) {
	completeCalled := false

	client := WrapClient(
		func(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
			completeCalled = true
			return CompletionResponse{Content: "wrapped"}, nil
		},
		func() string { return "wrapped-model" },
	)

	resp, err := client.Complete(context.Background(), NewCompletionRequest([]CompletionMessage{NewUserMessage("test")}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !completeCalled {
		t.Error("Complete function was not called")
	}
	if resp.Content != "wrapped" {
		t.Errorf("expected 'wrapped', got %q", resp.Content)
	}
	if got := client.GetModelName(); got != "wrapped-model" {
		t.Errorf("expected 'wrapped-model', got %q", got)
	}
}

// TestChainOrder verifies earlier middlewares are outermost.
func TestChainOrder(t *testing.T) {
	var order []string
	base := &mockLLMClient{
		completeFunc: func(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
			order = append(order, "base")
			return CompletionResponse{Content: "base"}, nil
		},
		getModelNameFunc: func() string { return "base-model" },
	}

	tag := func(name string) Middleware {
		return func(next LLMClient) LLMClient {
			return WrapClient(
				func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
					order = append(order, name)
					return next.Complete(ctx, req)
				},
				next.GetModelName,
			)
		}
	}

	client := Chain(base, tag("first"), nil, tag("second"))
	if _, err := client.Complete(context.Background(), CompletionRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"first", "second", "base"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], order[i])
		}
	}
	if client.GetModelName() != "base-model" {
		t.Errorf("model name not delegated: %q", client.GetModelName())
	}
}

// TestChainNoMiddleware returns the base client untouched.
func TestChainNoMiddleware(t *testing.T) {
	base := &mockLLMClient{getModelNameFunc: func() string { return "m" }}
	if Chain(base) != LLMClient(base) {
		t.Error("Chain without middleware should return the base client")
	}
}
