package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"agenticsearch/pkg/agent/llm"
	"agenticsearch/pkg/logx"
	"agenticsearch/pkg/proto"
)

// RouteDecision is the routing classifier's choice.
type RouteDecision struct {
	Agent     proto.Agent `json:"agent"`
	Reasoning string      `json:"reasoning"`
}

// RoutingSchema is the structured-output contract for routing.
func RoutingSchema() *llm.Schema {
	return &llm.Schema{
		Name:        "routing_decision",
		Description: "Which agent should answer the query.",
		Properties: map[string]llm.Property{
			"agent": {
				Type: "string",
				Description: "The agent to use. Either 'Search' for queries requiring up-to-date information, " +
					"or 'General' for general knowledge.",
				Enum: []string{string(proto.AgentSearch), string(proto.AgentGeneral)},
			},
			"reasoning": {
				Type:        "string",
				Description: "A brief explanation of why this agent was chosen.",
			},
		},
		Required: []string{"agent", "reasoning"},
		Order:    []string{"agent", "reasoning"},
	}
}

// Router asks the model which agent should handle a query.
type Router struct {
	client llm.LLMClient
	logger *logx.Logger
}

// NewRouter creates a router backed by client.
func NewRouter(client llm.LLMClient) *Router {
	return &Router{client: client, logger: logx.NewLogger("router")}
}

func routingPrompt(query string) string {
	return fmt.Sprintf("Based on the user's query, which agent should handle it? Query: %q", query)
}

// Route classifies the query. A reply that does not match the routing
// contract fails with KindInvalidRoutingDecision and is not retried.
func (r *Router) Route(ctx context.Context, query string) (RouteDecision, error) {
	req := llm.NewStructuredRequest(RoutingSchema(), llm.NewUserMessage(routingPrompt(query)))

	resp, err := r.client.Complete(llm.WithLabel(ctx, "router"), req)
	if err != nil {
		return RouteDecision{}, externalFailure(err)
	}

	decision, err := decodeRouteDecision(resp.Content)
	if err != nil {
		r.logger.Warn("invalid routing reply %q: %v", truncate(resp.Content, 200), err)
		return RouteDecision{}, proto.WrapQueryError(proto.KindInvalidRoutingDecision, err, proto.MsgInvalidRouting)
	}
	r.logger.Debug("routed to %s: %s", decision.Agent, decision.Reasoning)
	return decision, nil
}

func decodeRouteDecision(content string) (RouteDecision, error) {
	raw, err := llm.ExtractJSON(content)
	if err != nil {
		return RouteDecision{}, err
	}
	var reply struct {
		Agent     *string `json:"agent"`
		Reasoning *string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return RouteDecision{}, fmt.Errorf("decode routing decision: %w", err)
	}
	if reply.Agent == nil {
		return RouteDecision{}, fmt.Errorf("routing decision is missing %q", "agent")
	}
	if reply.Reasoning == nil {
		return RouteDecision{}, fmt.Errorf("routing decision is missing %q", "reasoning")
	}
	agent, ok := proto.ParseAgent(*reply.Agent)
	if !ok {
		return RouteDecision{}, fmt.Errorf("unknown agent %q", *reply.Agent)
	}
	return RouteDecision{Agent: agent, Reasoning: *reply.Reasoning}, nil
}
