package pipeline

import (
	"context"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agenticsearch/internal/mocks"
	"agenticsearch/pkg/agent/llm"
	"agenticsearch/pkg/proto"
)

func TestDecodeRouteDecision(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    proto.Agent
		wantErr bool
	}{
		{"search", `{"agent":"Search","reasoning":"needs fresh data"}`, proto.AgentSearch, false},
		{"general", `{"agent":"General","reasoning":"static fact"}`, proto.AgentGeneral, false},
		{"fenced", "```json\n{\"agent\":\"General\",\"reasoning\":\"x\"}\n```", proto.AgentGeneral, false},
		{"empty reasoning is fine", `{"agent":"General","reasoning":""}`, proto.AgentGeneral, false},
		{"not json", "Search", "", true},
		{"missing agent", `{"reasoning":"x"}`, "", true},
		{"missing reasoning", `{"agent":"Search"}`, "", true},
		{"unknown agent", `{"agent":"Search Agent","reasoning":"x"}`, "", true},
		{"wrong case", `{"agent":"search","reasoning":"x"}`, "", true},
		{"agent not a string", `{"agent":1,"reasoning":"x"}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeRouteDecision(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Agent)
		})
	}
}

func TestDecodeVerdict(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    float64
		wantErr bool
	}{
		{"typical", `{"confidence":0.95,"critique":"accurate"}`, 0.95, false},
		{"zero", `{"confidence":0,"critique":"wrong"}`, 0, false},
		{"one", `{"confidence":1,"critique":""}`, 1, false},
		{"missing critique", `{"confidence":0.5}`, 0, true},
		{"null critique", `{"confidence":0.5,"critique":null}`, 0, true},
		{"missing confidence", `{"critique":"x"}`, 0, true},
		{"above range", `{"confidence":1.5,"critique":"x"}`, 0, true},
		{"below range", `{"confidence":-0.1,"critique":"x"}`, 0, true},
		{"string confidence", `{"confidence":"high","critique":"x"}`, 0, true},
		{"garbage", "I am fairly confident", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeVerdict(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got.Confidence, 1e-9)
		})
	}
}

func TestExtractSources(t *testing.T) {
	sources := ExtractSources([]llm.Citation{
		{URI: "", Title: "dropped"},
		{URI: "https://a.example", Title: "A", Snippet: "alpha"},
		{URI: "https://b.example"},
		{URI: "", Title: "also dropped"},
		{URI: "https://c.example", Title: "C"},
	})

	require.Len(t, sources, 3)
	assert.Equal(t, proto.Source{ID: "source-0", URI: "https://a.example", Title: "A", Snippet: "alpha"}, sources[0])
	assert.Equal(t, "source-1", sources[1].ID)
	assert.Equal(t, UntitledSource, sources[1].Title)
	assert.Equal(t, `Content from "Untitled Source" was used to construct the answer.`, sources[1].Snippet)
	assert.Equal(t, "source-2", sources[2].ID)
	assert.Equal(t, `Content from "C" was used to construct the answer.`, sources[2].Snippet)
}

func TestExtractSourcesNeverNil(t *testing.T) {
	assert.NotNil(t, ExtractSources(nil))
	assert.Empty(t, ExtractSources([]llm.Citation{{Title: "no uri"}}))
}

func TestRouterSendsStructuredRequest(t *testing.T) {
	client := mocks.NewMockLLMClient()
	client.RespondWith(`{"agent":"Search","reasoning":"current events"}`)

	decision, err := NewRouter(client).Route(context.Background(), "latest news")
	require.NoError(t, err)
	assert.Equal(t, proto.AgentSearch, decision.Agent)
	assert.Equal(t, "current events", decision.Reasoning)

	req := client.LastRequest()
	require.NotNil(t, req.Schema)
	assert.Equal(t, "routing_decision", req.Schema.Name)
	assert.Equal(t, []string{"Search", "General"}, req.Schema.Properties["agent"].Enum)
	assert.False(t, req.Grounding)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, `Based on the user's query, which agent should handle it? Query: "latest news"`, req.Messages[0].Content)
	assert.Equal(t, []string{"router"}, client.Labels)
}

func TestRouterInvalidReply(t *testing.T) {
	client := mocks.NewMockLLMClient()
	client.RespondWith("I think Search")

	_, err := NewRouter(client).Route(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, proto.IsKind(err, proto.KindInvalidRoutingDecision))
	assert.Equal(t, proto.MsgInvalidRouting, err.Error())
}

func TestGeneratorSearchUsesGrounding(t *testing.T) {
	search := mocks.NewMockLLMClient()
	general := mocks.NewMockLLMClient()
	search.RespondWithCitations("draft", []llm.Citation{{URI: "https://x.example", Title: "X", Snippet: "x"}})

	draft, err := NewGenerator(search, general).Generate(context.Background(), "q", proto.AgentSearch)
	require.NoError(t, err)
	assert.Equal(t, "draft", draft.Text)
	require.Len(t, draft.Sources, 1)
	assert.True(t, search.LastRequest().Grounding)
	assert.Equal(t, 0, general.CallCount())
}

func TestGeneratorGeneralHasNoSources(t *testing.T) {
	search := mocks.NewMockLLMClient()
	general := mocks.NewMockLLMClient()
	general.RespondWithCitations("draft", []llm.Citation{{URI: "https://ignored.example"}})

	draft, err := NewGenerator(search, general).Generate(context.Background(), "q", proto.AgentGeneral)
	require.NoError(t, err)
	assert.NotNil(t, draft.Sources)
	assert.Empty(t, draft.Sources)
	assert.False(t, general.LastRequest().Grounding)
	assert.Equal(t, 0, search.CallCount())
}

func TestRefinementPrompt(t *testing.T) {
	withSources := RefinementPrompt("q", "d", []proto.Source{
		{Title: "T1", Snippet: "S1"},
		{Title: "T2", Snippet: "S2"},
	})
	assert.Contains(t, withSources, "User Query: \"q\"")
	assert.Contains(t, withSources, "- T1: S1\n- T2: S2\n")
	assert.Contains(t, withSources, "Draft Answer:\n\"d\"")
	assert.Contains(t, withSources, "Provide only the refined, final answer.")
	assert.NotContains(t, withSources, "(no sources)")

	empty := RefinementPrompt("q", "d", nil)
	assert.Contains(t, empty, "Sources:\n(no sources)\n")
	assert.Contains(t, empty, "If sources are empty, refine for logical consistency and clarity.")
}

func TestValidatorSchema(t *testing.T) {
	client := mocks.NewMockLLMClient()
	client.RespondWith(`{"confidence":0.8,"critique":"fine"}`)

	verdict, err := NewValidator(client).Validate(context.Background(), "q", "a")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, verdict.Confidence, 1e-9)
	assert.Equal(t, "fine", verdict.Critique)

	req := client.LastRequest()
	require.NotNil(t, req.Schema)
	assert.Equal(t, "validation_verdict", req.Schema.Name)
	assert.Equal(t, []string{"confidence", "critique"}, req.Schema.Required)
	assert.Contains(t, req.Messages[0].Content, `Query: "q" Answer: "a"`)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	got := truncate("日本語", 4)
	assert.Equal(t, "日...", got)
	assert.True(t, utf8.ValidString(got))
}
