package proto

// Source is one grounding citation backing the final answer.
type Source struct {
	ID      string `json:"id"`
	URI     string `json:"uri"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Response is the accumulating, and finally the completed, answer to a query.
//
// Text holds raw model output during intermediate stages and rendered
// markup once the query completes. Confidence is nil until validation.
type Response struct {
	Text       string   `json:"text"`
	Sources    []Source `json:"sources"`
	AgentUsed  Agent    `json:"agent_used"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Clone returns a deep copy so callers never share the orchestrator's slices.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := *r
	if r.Sources != nil {
		out.Sources = make([]Source, len(r.Sources))
		copy(out.Sources, r.Sources)
	}
	if r.Confidence != nil {
		c := *r.Confidence
		out.Confidence = &c
	}
	return &out
}

// ResponsePatch carries the response fields produced by one transition.
// A nil field means the transition did not touch it.
type ResponsePatch struct {
	Text       *string
	Sources    []Source
	AgentUsed  *Agent
	Confidence *float64
}

// MergeInto applies the patch onto base and returns the merged copy.
// Fields not present in the patch keep their previous values.
func (p *ResponsePatch) MergeInto(base *Response) *Response {
	out := base.Clone()
	if out == nil {
		out = &Response{}
	}
	if p == nil {
		return out
	}
	if p.Text != nil {
		out.Text = *p.Text
	}
	if p.Sources != nil {
		out.Sources = make([]Source, len(p.Sources))
		copy(out.Sources, p.Sources)
	}
	if p.AgentUsed != nil {
		out.AgentUsed = *p.AgentUsed
	}
	if p.Confidence != nil {
		c := *p.Confidence
		out.Confidence = &c
	}
	return out
}

// PatchFromResponse turns a complete response into a patch that sets every field.
func PatchFromResponse(r *Response) *ResponsePatch {
	if r == nil {
		return nil
	}
	text := r.Text
	agent := r.AgentUsed
	sources := r.Sources
	if sources == nil {
		sources = []Source{}
	}
	p := &ResponsePatch{
		Text:      &text,
		Sources:   sources,
		AgentUsed: &agent,
	}
	if r.Confidence != nil {
		c := *r.Confidence
		p.Confidence = &c
	}
	return p
}
