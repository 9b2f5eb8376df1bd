package llm

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStructuredRequest(t *testing.T) {
	schema := &Schema{Name: "s"}
	req := NewStructuredRequest(schema, NewSystemMessage("sys"), NewUserMessage("hi"))

	assert.Same(t, schema, req.Schema)
	assert.Equal(t, float32(TemperatureDeterministic), req.Temperature)
	assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
	assert.False(t, req.Grounding)
	require.Len(t, req.Messages, 2)
}

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]CompletionMessage{
		NewSystemMessage("one"),
		NewUserMessage("question"),
		NewSystemMessage("two"),
	})
	assert.Equal(t, "one\n\ntwo", system)
	require.Len(t, rest, 1)
	assert.Equal(t, RoleUser, rest[0].Role)
}

func TestLLMConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LLMConfig
		wantErr bool
	}{
		{"valid", LLMConfig{Provider: "google", APIKey: "k", ModelName: "m"}, false},
		{"missing key", LLMConfig{Provider: "openai", ModelName: "m"}, true},
		{"ollama needs no key", LLMConfig{Provider: "ollama", ModelName: "llama3"}, false},
		{"missing model", LLMConfig{Provider: "google", APIKey: "k"}, true},
		{"bad temperature", LLMConfig{Provider: "google", APIKey: "k", ModelName: "m", Temperature: 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSchemaJSONSchema(t *testing.T) {
	s := &Schema{
		Name: "routing_decision",
		Properties: map[string]Property{
			"agent":     {Type: "string", Enum: []string{"Search", "General"}},
			"reasoning": {Type: "string"},
			"score":     {Type: "number", Minimum: Float64(0), Maximum: Float64(1)},
		},
		Required: []string{"agent", "reasoning"},
	}

	raw, err := json.Marshal(s.JSONSchema())
	require.NoError(t, err)

	var doc struct {
		Type       string                    `json:"type"`
		Required   []string                  `json:"required"`
		Properties map[string]map[string]any `json:"properties"`
		Additional bool                      `json:"additionalProperties"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "object", doc.Type)
	assert.Equal(t, []string{"agent", "reasoning"}, doc.Required)
	assert.False(t, doc.Additional)
	assert.Equal(t, []any{"Search", "General"}, doc.Properties["agent"]["enum"])
	assert.InDelta(t, 1.0, doc.Properties["score"]["maximum"], 1e-9)
	assert.Contains(t, s.PromptInstructions(), `"enum"`)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\": {\"b\": 2}}\n```", `{"a": {"b": 2}}`},
		{"prose around", `Sure! {"agent":"General"} hope that helps`, `{"agent":"General"}`},
		{"brace in string", `{"s":"a } b"}`, `{"s":"a } b"}`},
		{"escaped quote", `{"s":"say \"}\""}`, `{"s":"say \"}\""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ExtractJSON("no object here")
	assert.True(t, errors.Is(err, ErrNoJSONObject))
	_, err = ExtractJSON(`{"open": 1`)
	assert.ErrorIs(t, err, ErrNoJSONObject)
}
