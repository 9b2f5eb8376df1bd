package llm

import "context"

type labelKey struct{}

// WithLabel tags model calls made with ctx, typically with the pipeline
// stage that issues them. Middleware reads it back with LabelFrom.
func WithLabel(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, labelKey{}, label)
}

// LabelFrom returns the label set by WithLabel, or "unlabeled".
func LabelFrom(ctx context.Context) string {
	if l, ok := ctx.Value(labelKey{}).(string); ok && l != "" {
		return l
	}
	return "unlabeled"
}
