// Package llm provides interfaces and types for Large Language Model client implementations.
package llm

import (
	"context"
	"fmt"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the human user.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the model.
	RoleAssistant CompletionRole = "assistant"
)

const (
	// DefaultMaxTokens is the output budget used when a request does not set one.
	DefaultMaxTokens = 4096

	// TemperatureDefault is used for drafting and refinement.
	TemperatureDefault = 0.3

	// TemperatureDeterministic is used for structured classification calls.
	TemperatureDeterministic = 0.0
)

// CompletionMessage represents a message in a completion request.
type CompletionMessage struct {
	Content string
	Role    CompletionRole
}

// CompletionRequest represents a request to generate a completion.
//
// Schema, when set, asks the provider for a reply that is a single JSON
// object conforming to it. Grounding enables the provider's web search
// tool so the reply can carry citations.
//
//nolint:govet // fieldalignment: value semantics preferred over pointer indirection
type CompletionRequest struct {
	Messages    []CompletionMessage
	Schema      *Schema
	Grounding   bool
	MaxTokens   int
	Temperature float32
}

// Citation is one grounding reference returned with a completion.
type Citation struct {
	URI     string `json:"uri"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// CompletionResponse represents a response from a completion request.
type CompletionResponse struct {
	Content    string     // Main response text
	Citations  []Citation // Grounding references, in the order the provider returned them
	StopReason string     // Why the response stopped: "end_turn", "max_tokens", etc.
}

// LLMClient defines the interface for language model interactions.
type LLMClient interface { //nolint:revive // Keep name for consistency with providers
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// GetModelName returns the model name for this LLM client.
	GetModelName() string
}

// NewCompletionRequest creates a new completion request with default values.
func NewCompletionRequest(messages []CompletionMessage) CompletionRequest {
	return CompletionRequest{
		Messages:    messages,
		MaxTokens:   DefaultMaxTokens,
		Temperature: TemperatureDefault,
	}
}

// NewStructuredRequest creates a deterministic request constrained by schema.
func NewStructuredRequest(schema *Schema, messages ...CompletionMessage) CompletionRequest {
	req := NewCompletionRequest(messages)
	req.Schema = schema
	req.Temperature = TemperatureDeterministic
	return req
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleSystem,
		Content: content,
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleUser,
		Content: content,
	}
}

// SplitSystem separates system messages from the conversation, joining
// their content with blank lines. Most provider SDKs take the system
// prompt as a separate parameter.
func SplitSystem(messages []CompletionMessage) (string, []CompletionMessage) {
	var system string
	rest := make([]CompletionMessage, 0, len(messages))
	for i := range messages {
		if messages[i].Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += messages[i].Content
			continue
		}
		rest = append(rest, messages[i])
	}
	return system, rest
}

// LLMConfig represents configuration for an LLM client.
type LLMConfig struct { //nolint:revive // Keep name for consistency with LLMClient
	Provider    string
	APIKey      string
	ModelName   string
	Host        string // ollama only
	MaxTokens   int
	Temperature float32
}

// Validate validates the LLM configuration.
func (c *LLMConfig) Validate() error {
	if c.APIKey == "" && c.Provider != "ollama" {
		return fmt.Errorf("API key cannot be empty for provider %q", c.Provider)
	}
	if c.ModelName == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max tokens must not be negative")
	}
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0")
	}
	return nil
}
