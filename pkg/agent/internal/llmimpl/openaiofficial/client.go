// Package openaiofficial provides OpenAI client implementation using the official OpenAI Go package.
package openaiofficial

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"

	"agenticsearch/pkg/agent/llm"
	"agenticsearch/pkg/agent/llmerrors"
)

// OfficialClient wraps the official OpenAI Go client to implement llm.LLMClient interface.
//
//nolint:govet // Simple struct, field alignment not critical
type OfficialClient struct {
	client openai.Client
	model  string
}

// NewOfficialClientWithModel creates a new OpenAI client with specific model using the official package (raw client, middleware applied at higher level).
func NewOfficialClientWithModel(apiKey, model string, opts ...option.RequestOption) llm.LLMClient {
	all := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OfficialClient{
		client: openai.NewClient(all...),
		model:  model,
	}
}

// Complete implements the llm.LLMClient interface using the Responses API.
//
//nolint:gocritic // 80 bytes is reasonable for interface compliance
func (o *OfficialClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	params, err := o.buildParams(in)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if resp == nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty response from OpenAI Responses API")
	}

	content, citations := extractOutput(resp)
	out := llm.CompletionResponse{
		Content:    content,
		StopReason: stopReason(resp),
	}
	if in.Grounding {
		out.Citations = citations
	}
	return out, nil
}

// GetModelName returns the model name for this client.
func (o *OfficialClient) GetModelName() string {
	return o.model
}

//nolint:gocritic // 80 bytes is reasonable for interface compliance
func (o *OfficialClient) buildParams(in llm.CompletionRequest) (responses.ResponseNewParams, error) {
	system, rest := llm.SplitSystem(in.Messages)

	// The Responses API takes a single input string here; assistant turns are labelled.
	var input strings.Builder
	for i := range rest {
		msg := &rest[i]
		if input.Len() > 0 {
			input.WriteString("\n\n")
		}
		if msg.Role == llm.RoleAssistant {
			input.WriteString("Assistant: ")
		}
		input.WriteString(msg.Content)
	}
	if input.Len() == 0 {
		return responses.ResponseNewParams{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, "no user content to send")
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(o.model),
		Input: responses.ResponseNewParamsInputUnion{OfString: openai.String(input.String())},
	}
	if system != "" {
		params.Instructions = openai.String(system)
	}
	if in.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(in.MaxTokens))
	}
	if !isReasoningModel(o.model) {
		params.Temperature = openai.Float(float64(in.Temperature))
	}
	if in.Schema != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   in.Schema.Name,
					Schema: in.Schema.JSONSchema(),
					Strict: openai.Bool(true),
				},
			},
		}
	}
	if in.Grounding {
		params.Tools = []responses.ToolUnionParam{{
			OfWebSearchPreview: &responses.WebSearchToolParam{
				Type: responses.WebSearchToolTypeWebSearchPreview,
			},
		}}
	}
	return params, nil
}

// isReasoningModel reports models that reject the temperature parameter.
func isReasoningModel(model string) bool {
	return strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") ||
		strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5")
}

// extractOutput collects the output text and its url_citation annotations.
// The snippet of a citation is the span of answer text it annotates.
func extractOutput(resp *responses.Response) (string, []llm.Citation) {
	var text strings.Builder
	var citations []llm.Citation

	for i := range resp.Output {
		item := &resp.Output[i]
		if item.Type != "message" {
			continue
		}
		msg := item.AsMessage()
		for j := range msg.Content {
			part := &msg.Content[j]
			if part.Type != "output_text" {
				continue
			}
			out := part.AsOutputText()
			for k := range out.Annotations {
				ann := &out.Annotations[k]
				if ann.Type != "url_citation" {
					continue
				}
				c := ann.AsURLCitation()
				citations = append(citations, llm.Citation{
					URI:     c.URL,
					Title:   c.Title,
					Snippet: span(out.Text, c.StartIndex, c.EndIndex),
				})
			}
			text.WriteString(out.Text)
		}
	}

	if text.Len() == 0 {
		return resp.OutputText(), citations
	}
	return text.String(), citations
}

// span returns runes [start, end) of s, or "" when the bounds are unusable.
func span(s string, start, end int64) string {
	runes := []rune(s)
	if start < 0 || end <= start || end > int64(len(runes)) {
		return ""
	}
	return strings.TrimSpace(string(runes[start:end]))
}

func stopReason(resp *responses.Response) string {
	if reason := resp.IncompleteDetails.Reason; reason != "" {
		if reason == "max_output_tokens" {
			return "max_tokens"
		}
		return reason
	}
	return "end_turn"
}

// classifyError maps OpenAI SDK errors to our structured error types.
func classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return llmerrors.Classify(fmt.Errorf("OpenAI Responses API failed: %w", err), apiErr.StatusCode)
	}
	return llmerrors.Classify(fmt.Errorf("OpenAI Responses API failed: %w", err), 0)
}
