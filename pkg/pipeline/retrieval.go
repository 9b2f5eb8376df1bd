package pipeline

import (
	"context"
	"fmt"

	"agenticsearch/pkg/agent/llm"
	"agenticsearch/pkg/logx"
	"agenticsearch/pkg/proto"
)

// UntitledSource is the title given to citations that arrive without one.
const UntitledSource = "Untitled Source"

// Draft is the first answer produced for a query.
type Draft struct {
	Text    string
	Sources []proto.Source
}

// Generator produces the draft answer. Search queries go to a client with
// web grounding enabled; General queries go to a plain client.
type Generator struct {
	search  llm.LLMClient
	general llm.LLMClient
	logger  *logx.Logger
}

// NewGenerator creates a generator. The two clients may be the same.
func NewGenerator(search, general llm.LLMClient) *Generator {
	return &Generator{search: search, general: general, logger: logx.NewLogger("retrieval")}
}

// Generate drafts an answer with the given agent.
func (g *Generator) Generate(ctx context.Context, query string, agent proto.Agent) (Draft, error) {
	req := llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage(query)})

	switch agent {
	case proto.AgentSearch:
		req.Grounding = true
		resp, err := g.search.Complete(llm.WithLabel(ctx, "search"), req)
		if err != nil {
			return Draft{}, externalFailure(err)
		}
		sources := ExtractSources(resp.Citations)
		g.logger.Debug("grounded draft with %d of %d citations usable", len(sources), len(resp.Citations))
		return Draft{Text: resp.Content, Sources: sources}, nil

	case proto.AgentGeneral:
		resp, err := g.general.Complete(llm.WithLabel(ctx, "general"), req)
		if err != nil {
			return Draft{}, externalFailure(err)
		}
		return Draft{Text: resp.Content, Sources: []proto.Source{}}, nil

	default:
		return Draft{}, proto.NewQueryError(proto.KindInvalidRoutingDecision, proto.MsgInvalidRouting)
	}
}

// ExtractSources turns grounding citations into sources. Citations without
// a URI are dropped and IDs are assigned after filtering, so they are
// always source-0, source-1, ... with no gaps. The result is never nil.
func ExtractSources(citations []llm.Citation) []proto.Source {
	sources := make([]proto.Source, 0, len(citations))
	for _, c := range citations {
		if c.URI == "" {
			continue
		}
		title := c.Title
		if title == "" {
			title = UntitledSource
		}
		snippet := c.Snippet
		if snippet == "" {
			snippet = fmt.Sprintf("Content from %q was used to construct the answer.", title)
		}
		sources = append(sources, proto.Source{
			ID:      fmt.Sprintf("source-%d", len(sources)),
			URI:     c.URI,
			Title:   title,
			Snippet: snippet,
		})
	}
	return sources
}
