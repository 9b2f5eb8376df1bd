// Package google provides Google Gemini client implementation for LLM interface.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"agenticsearch/pkg/agent/llm"
	"agenticsearch/pkg/agent/llmerrors"
)

// GeminiClient wraps the Google GenAI client to implement llm.LLMClient interface.
type GeminiClient struct {
	mu     sync.Mutex
	client *genai.Client
	apiKey string
	model  string
}

// NewGeminiClientWithModel creates a new Gemini client with specific model (raw client, middleware applied at higher level).
func NewGeminiClientWithModel(apiKey, model string) llm.LLMClient {
	// Client creation requires a context, so it is deferred to the first Complete.
	return &GeminiClient{
		apiKey: apiKey,
		model:  model,
	}
}

func (g *GeminiClient) ensureClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeAuth, err, "failed to create Gemini client")
	}
	g.client = client
	return client, nil
}

// Complete implements the llm.LLMClient interface.
//
//nolint:gocritic // CompletionRequest size acceptable for interface consistency
func (g *GeminiClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	client, err := g.ensureClient(ctx)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	contents, systemInstruction, err := convertMessagesToGemini(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message conversion error: %v", err))
	}

	result, err := client.Models.GenerateContent(ctx, g.model, contents, buildConfig(in, systemInstruction))
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if result == nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty response from Gemini API")
	}

	response := llm.CompletionResponse{
		Content:    result.Text(),
		StopReason: getStopReason(result),
	}
	if in.Grounding && len(result.Candidates) > 0 {
		response.Citations = citationsFromMetadata(result.Candidates[0].GroundingMetadata)
	}
	return response, nil
}

// GetModelName returns the model name for this client.
func (g *GeminiClient) GetModelName() string {
	return g.model
}

// buildConfig translates a request into Gemini generation settings. Gemini
// rejects a response schema combined with the search tool; the pipeline
// never asks for both.
//
//nolint:gocritic // CompletionRequest size acceptable for interface consistency
func buildConfig(in llm.CompletionRequest, systemInstruction string) *genai.GenerateContentConfig {
	temperature := in.Temperature
	config := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if in.MaxTokens > 0 {
		//nolint:gosec // MaxTokens validated at higher layer
		config.MaxOutputTokens = int32(in.MaxTokens)
	}
	if systemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}
	if in.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = convertSchemaToGemini(in.Schema)
	}
	if in.Grounding {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return config
}

// convertMessagesToGemini converts our message format to Gemini's Content format.
// Returns contents array and optional system instruction.
func convertMessagesToGemini(messages []llm.CompletionMessage) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("message list cannot be empty")
	}

	systemInstruction, rest := llm.SplitSystem(messages)
	contents := make([]*genai.Content, 0, len(rest))
	for i := range rest {
		msg := &rest[i]

		var role string
		switch msg.Role {
		case llm.RoleUser:
			role = genai.RoleUser
		case llm.RoleAssistant:
			role = genai.RoleModel
		default:
			return nil, "", fmt.Errorf("unsupported message role: %s", msg.Role)
		}
		if msg.Content == "" {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	if len(contents) == 0 {
		return nil, "", fmt.Errorf("no user or assistant content to send")
	}
	return contents, systemInstruction, nil
}

// convertSchemaToGemini converts a structured-output schema to Gemini's schema format.
func convertSchemaToGemini(s *llm.Schema) *genai.Schema {
	properties := make(map[string]*genai.Schema, len(s.Properties))
	for name, prop := range s.Properties {
		ps := &genai.Schema{
			Type:        convertType(prop.Type),
			Description: prop.Description,
			Minimum:     prop.Minimum,
			Maximum:     prop.Maximum,
		}
		if len(prop.Enum) > 0 {
			ps.Enum = prop.Enum
		}
		properties[name] = ps
	}
	return &genai.Schema{
		Type:             genai.TypeObject,
		Description:      s.Description,
		Properties:       properties,
		Required:         s.Required,
		PropertyOrdering: s.Order,
	}
}

func convertType(t string) genai.Type {
	switch t {
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// citationsFromMetadata lists the web grounding chunks in order. Entries
// without a URI are kept; the caller decides what is usable. The snippet is
// the first answer segment that cites the chunk, when there is one.
func citationsFromMetadata(md *genai.GroundingMetadata) []llm.Citation {
	if md == nil || len(md.GroundingChunks) == 0 {
		return nil
	}

	snippets := make(map[int]string)
	for _, support := range md.GroundingSupports {
		if support == nil || support.Segment == nil {
			continue
		}
		text := strings.TrimSpace(support.Segment.Text)
		if text == "" {
			continue
		}
		for _, idx := range support.GroundingChunkIndices {
			if _, seen := snippets[int(idx)]; !seen {
				snippets[int(idx)] = text
			}
		}
	}

	citations := make([]llm.Citation, 0, len(md.GroundingChunks))
	for i, chunk := range md.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		citations = append(citations, llm.Citation{
			URI:     chunk.Web.URI,
			Title:   chunk.Web.Title,
			Snippet: snippets[i],
		})
	}
	return citations
}

// classifyError maps GenAI SDK errors to our structured error types.
func classifyError(err error) *llmerrors.Error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return llmerrors.Classify(err, apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return llmerrors.Classify(err, apiErrPtr.Code)
	}
	return llmerrors.Classify(err, 0)
}

// getStopReason extracts the stop reason from Gemini response.
func getStopReason(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0] == nil {
		return "unknown"
	}
	switch reason := result.Candidates[0].FinishReason; reason {
	case genai.FinishReasonStop, "":
		return "end_turn"
	case genai.FinishReasonMaxTokens:
		return "max_tokens"
	default:
		return strings.ToLower(string(reason))
	}
}
