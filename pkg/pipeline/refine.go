package pipeline

import (
	"context"
	"strings"

	"agenticsearch/pkg/agent/llm"
	"agenticsearch/pkg/proto"
)

const refinementRules = `You are a meticulous fact-checker and editor. Your task is to refine a draft answer based on a user's query and provided sources.
1. Verify every claim in the draft against the provided sources. Remove any information that is not supported by the sources.
2. Improve the clarity, flow, and conciseness of the text.
3. Ensure the final answer directly addresses the user's query.
4. Do not introduce new information not present in the sources. If sources are empty, refine for logical consistency and clarity.`

// Refiner asks the model to fact-check and tighten a draft.
type Refiner struct {
	client llm.LLMClient
}

// NewRefiner creates a refiner backed by client.
func NewRefiner(client llm.LLMClient) *Refiner {
	return &Refiner{client: client}
}

// RefinementPrompt builds the single instruction sent to the model.
func RefinementPrompt(query, draft string, sources []proto.Source) string {
	var b strings.Builder
	b.WriteString(refinementRules)
	b.WriteString("\n\nUser Query: \"")
	b.WriteString(query)
	b.WriteString("\"\n\nSources:\n")
	if len(sources) == 0 {
		b.WriteString("(no sources)\n")
	}
	for _, s := range sources {
		b.WriteString("- ")
		b.WriteString(s.Title)
		b.WriteString(": ")
		b.WriteString(s.Snippet)
		b.WriteByte('\n')
	}
	b.WriteString("\nDraft Answer:\n\"")
	b.WriteString(draft)
	b.WriteString("\"\n\nProvide only the refined, final answer.")
	return b.String()
}

// Refine returns the model's refined text. The draft is not edited locally.
func (r *Refiner) Refine(ctx context.Context, query, draft string, sources []proto.Source) (string, error) {
	req := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewUserMessage(RefinementPrompt(query, draft, sources)),
	})
	resp, err := r.client.Complete(llm.WithLabel(ctx, "refine"), req)
	if err != nil {
		return "", externalFailure(err)
	}
	return resp.Content, nil
}
