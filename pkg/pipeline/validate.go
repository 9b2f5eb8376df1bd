package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"agenticsearch/pkg/agent/llm"
	"agenticsearch/pkg/logx"
	"agenticsearch/pkg/proto"
)

// Verdict is the validator's assessment of a refined answer.
type Verdict struct {
	Confidence float64 `json:"confidence"`
	Critique   string  `json:"critique"`
}

// ValidationSchema is the structured-output contract for validation.
func ValidationSchema() *llm.Schema {
	return &llm.Schema{
		Name:        "validation_verdict",
		Description: "Confidence score and critique for a generated answer.",
		Properties: map[string]llm.Property{
			"confidence": {
				Type:        "number",
				Description: "A confidence score between 0.0 and 1.0 for the generated answer's accuracy and relevance.",
				Minimum:     llm.Float64(0),
				Maximum:     llm.Float64(1),
			},
			"critique": {
				Type:        "string",
				Description: "A brief critique of the answer, highlighting potential inaccuracies or areas for improvement.",
			},
		},
		Required: []string{"confidence", "critique"},
		Order:    []string{"confidence", "critique"},
	}
}

// Validator scores a refined answer.
type Validator struct {
	client llm.LLMClient
	logger *logx.Logger
}

// NewValidator creates a validator backed by client.
func NewValidator(client llm.LLMClient) *Validator {
	return &Validator{client: client, logger: logx.NewLogger("validate")}
}

func validationPrompt(query, answer string) string {
	return fmt.Sprintf("Given the user's query and the generated answer, provide a confidence score and a brief critique. "+
		"Query: %q Answer: %q", query, answer)
}

// Validate asks the model for a confidence score and critique.
func (v *Validator) Validate(ctx context.Context, query, refined string) (Verdict, error) {
	req := llm.NewStructuredRequest(ValidationSchema(), llm.NewUserMessage(validationPrompt(query, refined)))

	resp, err := v.client.Complete(llm.WithLabel(ctx, "validate"), req)
	if err != nil {
		return Verdict{}, externalFailure(err)
	}

	verdict, err := decodeVerdict(resp.Content)
	if err != nil {
		v.logger.Warn("invalid validation reply %q: %v", truncate(resp.Content, 200), err)
		return Verdict{}, proto.WrapQueryError(proto.KindInvalidValidationDecision, err, proto.MsgInvalidValidation)
	}
	v.logger.Debug("confidence %.2f, critique: %s", verdict.Confidence, verdict.Critique)
	return verdict, nil
}

func decodeVerdict(content string) (Verdict, error) {
	raw, err := llm.ExtractJSON(content)
	if err != nil {
		return Verdict{}, err
	}
	var reply struct {
		Confidence *float64 `json:"confidence"`
		Critique   *string  `json:"critique"`
	}
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return Verdict{}, fmt.Errorf("decode validation verdict: %w", err)
	}
	if reply.Confidence == nil {
		return Verdict{}, fmt.Errorf("validation verdict is missing %q", "confidence")
	}
	if reply.Critique == nil {
		return Verdict{}, fmt.Errorf("validation verdict is missing %q", "critique")
	}
	if c := *reply.Confidence; c < 0 || c > 1 {
		return Verdict{}, fmt.Errorf("confidence %v is outside [0, 1]", c)
	}
	return Verdict{Confidence: *reply.Confidence, Critique: *reply.Critique}, nil
}
