package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSONObject is returned by ExtractJSON when the text holds no object.
var ErrNoJSONObject = errors.New("no JSON object found in model output")

// Property describes one field of a structured-output object.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`
}

// Schema is a flat JSON object schema used as a structured-output contract.
// Providers translate it into their native format.
type Schema struct {
	Name        string
	Description string
	Properties  map[string]Property
	Required    []string
	// Order lists property names in the order prompts should mention them.
	Order []string
}

// JSONSchema renders the schema as a JSON Schema document.
func (s *Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, p := range s.Properties {
		m := map[string]any{"type": p.Type}
		if p.Description != "" {
			m["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			m["enum"] = p.Enum
		}
		if p.Minimum != nil {
			m["minimum"] = *p.Minimum
		}
		if p.Maximum != nil {
			m["maximum"] = *p.Maximum
		}
		props[name] = m
	}
	required := s.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// PromptInstructions describes the schema in plain text for providers
// without a native structured-output mode.
func (s *Schema) PromptInstructions() string {
	raw, err := json.MarshalIndent(s.JSONSchema(), "", "  ")
	if err != nil {
		raw = []byte("{}")
	}
	var b strings.Builder
	b.WriteString("Respond with a single JSON object and nothing else. ")
	b.WriteString("Do not wrap it in code fences. It must match this JSON schema:\n")
	b.Write(raw)
	return b.String()
}

// Float64 returns a pointer to v, for schema bounds.
func Float64(v float64) *float64 {
	return &v
}

// ExtractJSON returns the first top-level JSON object in text. Models
// occasionally wrap structured replies in prose or markdown fences.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoJSONObject
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unterminated object", ErrNoJSONObject)
}
