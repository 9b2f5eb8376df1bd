// Package anthropic provides Anthropic Claude client implementation for LLM interface.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"agenticsearch/pkg/agent/llm"
	"agenticsearch/pkg/agent/llmerrors"
)

// webSearchMaxUses caps server-side searches per grounded request.
const webSearchMaxUses = 5

// ClaudeClient wraps the Anthropic API client to implement llm.LLMClient interface.
//
//nolint:govet // Simple client struct, logical grouping preferred
type ClaudeClient struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewClaudeClientWithModel creates a new Claude client with specific model (raw client, middleware applied at higher level).
func NewClaudeClientWithModel(apiKey, model string, opts ...option.RequestOption) llm.LLMClient {
	all := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &ClaudeClient{
		client: anthropic.NewClient(all...),
		model:  anthropic.Model(model),
	}
}

// ensureAlternation prepares messages for Anthropic API requirements.
// 1. Extracts system messages to top-level system parameter
// 2. Merges consecutive user messages into single user messages
// 3. Validates strict user/assistant alternation ending with a user message.
func ensureAlternation(messages []llm.CompletionMessage) (systemPrompt string, alternating []llm.CompletionMessage, err error) {
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("message list cannot be empty")
	}

	systemPrompt, rest := llm.SplitSystem(messages)
	if len(rest) == 0 {
		return "", nil, fmt.Errorf("must have at least one non-system message")
	}

	var merged []llm.CompletionMessage
	var userParts []string
	flush := func() {
		if len(userParts) > 0 {
			merged = append(merged, llm.NewUserMessage(strings.Join(userParts, "\n\n")))
			userParts = nil
		}
	}
	for i := range rest {
		msg := &rest[i]
		if msg.Role == llm.RoleAssistant {
			flush()
			merged = append(merged, *msg)
			continue
		}
		userParts = append(userParts, msg.Content)
	}
	flush()

	if merged[0].Role != llm.RoleUser {
		return "", nil, fmt.Errorf("first message must be user role, got: %s", merged[0].Role)
	}
	for i := 1; i < len(merged); i++ {
		if merged[i].Role == merged[i-1].Role {
			return "", nil, fmt.Errorf("alternation violation at index %d: consecutive %s messages", i, merged[i].Role)
		}
	}
	if last := merged[len(merged)-1]; last.Role != llm.RoleUser {
		return "", nil, fmt.Errorf("last message must be user role, got: %s", last.Role)
	}
	return systemPrompt, merged, nil
}

// buildParams converts a request into Messages API parameters. Claude has
// no native response schema here, so the schema is described in the system
// prompt and the reply is cut down to its JSON object afterwards.
//
//nolint:gocritic // CompletionRequest is 80 bytes but passing by value matches interface
func (c *ClaudeClient) buildParams(in llm.CompletionRequest) (anthropic.MessageNewParams, error) {
	systemPrompt, alternating, err := ensureAlternation(in.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message alternation error: %v", err))
	}

	messages := make([]anthropic.MessageParam, 0, len(alternating))
	for i := range alternating {
		msg := &alternating[i]
		messages = append(messages, anthropic.MessageParam{
			Role:    anthropic.MessageParamRole(msg.Role),
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Content)},
		})
	}

	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(float64(in.Temperature)),
	}

	if in.Schema != nil {
		if systemPrompt != "" {
			systemPrompt += "\n\n"
		}
		systemPrompt += in.Schema.PromptInstructions()
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	if in.Grounding {
		params.Tools = []anthropic.ToolUnionParam{{
			OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{
				MaxUses: anthropic.Int(webSearchMaxUses),
			},
		}}
	}
	return params, nil
}

// Complete implements the llm.LLMClient interface.
//
//nolint:gocritic // CompletionRequest is 80 bytes but passing by value matches interface
func (c *ClaudeClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	params, err := c.buildParams(in)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "received empty or nil response from Claude API")
	}

	content, citations := extractContent(resp)
	if in.Schema != nil {
		// Leave the text alone when no object is found; the caller reports the decode failure.
		if obj, jsonErr := llm.ExtractJSON(content); jsonErr == nil {
			content = obj
		}
	}

	out := llm.CompletionResponse{
		Content:    content,
		StopReason: string(resp.StopReason),
	}
	if in.Grounding {
		out.Citations = citations
	}
	return out, nil
}

// extractContent joins the text blocks and gathers their web search
// citations. Server tool blocks are skipped.
func extractContent(resp *anthropic.Message) (string, []llm.Citation) {
	var text strings.Builder
	var citations []llm.Citation
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type != "text" {
			continue
		}
		tb := block.AsText()
		text.WriteString(tb.Text)
		for j := range tb.Citations {
			cite := &tb.Citations[j]
			if cite.Type != "web_search_result_location" {
				continue
			}
			citations = append(citations, llm.Citation{
				URI:     cite.URL,
				Title:   cite.Title,
				Snippet: strings.TrimSpace(cite.CitedText),
			})
		}
	}
	return strings.TrimSpace(text.String()), citations
}

// GetModelName returns the model name for this client.
func (c *ClaudeClient) GetModelName() string {
	return string(c.model)
}

// classifyError maps Anthropic SDK errors to our structured error types.
func classifyError(err error) *llmerrors.Error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return llmerrors.Classify(err, apiErr.StatusCode)
	}
	return llmerrors.Classify(err, 0)
}
