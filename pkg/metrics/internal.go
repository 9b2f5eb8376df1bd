package metrics

import (
	"sort"
	"sync"
	"time"
)

// InternalRecorder implements the Recorder interface using in-memory aggregation.
// The CLI uses it to print a usage summary without a metrics endpoint.
type InternalRecorder struct {
	models     map[string]*ModelMetrics
	stages     map[string]time.Duration
	outcomes   map[string]int64
	rejections map[string]int64
	throttles  int64
	mu         sync.RWMutex
}

// ModelMetrics represents aggregated request metrics for one model.
//
//nolint:govet
type ModelMetrics struct {
	Model            string        `json:"model"`
	RequestCount     int64         `json:"request_count"`
	ErrorCount       int64         `json:"error_count"`
	PromptTokens     int64         `json:"prompt_tokens"`
	CompletionTokens int64         `json:"completion_tokens"`
	TotalTokens      int64         `json:"total_tokens"`
	TotalDuration    time.Duration `json:"total_duration"`
}

// NewInternalRecorder returns an empty in-memory recorder.
func NewInternalRecorder() *InternalRecorder {
	r := &InternalRecorder{}
	r.Reset()
	return r
}

// ObserveRequest records metrics for a completed model request.
func (r *InternalRecorder) ObserveRequest(
	model, _ string,
	promptTokens, completionTokens int,
	success bool,
	_ string,
	duration time.Duration,
) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.models[model]
	if !ok {
		m = &ModelMetrics{Model: model}
		r.models[model] = m
	}
	m.RequestCount++
	m.TotalDuration += duration
	if !success {
		m.ErrorCount++
		return
	}
	m.PromptTokens += int64(promptTokens)
	m.CompletionTokens += int64(completionTokens)
	m.TotalTokens = m.PromptTokens + m.CompletionTokens
}

// IncThrottle counts outbound pacing events.
func (r *InternalRecorder) IncThrottle(_, _ string) {
	r.mu.Lock()
	r.throttles++
	r.mu.Unlock()
}

// ObserveStage accumulates time spent per stage.
func (r *InternalRecorder) ObserveStage(stage string, duration time.Duration) {
	r.mu.Lock()
	r.stages[stage] += duration
	r.mu.Unlock()
}

// IncQuery counts finished queries by outcome.
func (r *InternalRecorder) IncQuery(outcome string) {
	r.mu.Lock()
	r.outcomes[outcome]++
	r.mu.Unlock()
}

// IncRejection counts gate rejections by reason.
func (r *InternalRecorder) IncRejection(reason string) {
	r.mu.Lock()
	r.rejections[reason]++
	r.mu.Unlock()
}

// GetModelMetrics returns a copy of the metrics for one model, or nil.
func (r *InternalRecorder) GetModelMetrics(model string) *ModelMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m, ok := r.models[model]; ok {
		cp := *m
		return &cp
	}
	return nil
}

// AllModelMetrics returns copies of every model's metrics, sorted by model name.
func (r *InternalRecorder) AllModelMetrics() []ModelMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ModelMetrics, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}

// StageDuration returns the accumulated time spent in a stage.
func (r *InternalRecorder) StageDuration(stage string) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stages[stage]
}

// Outcomes returns a copy of the finished-query counters.
func (r *InternalRecorder) Outcomes() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int64, len(r.outcomes))
	for k, v := range r.outcomes {
		out[k] = v
	}
	return out
}

// Rejections returns the number of gate rejections for a reason.
func (r *InternalRecorder) Rejections(reason string) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rejections[reason]
}

// Throttles returns the number of outbound pacing events.
func (r *InternalRecorder) Throttles() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.throttles
}

// Reset clears all metrics (useful for testing).
func (r *InternalRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = make(map[string]*ModelMetrics)
	r.stages = make(map[string]time.Duration)
	r.outcomes = make(map[string]int64)
	r.rejections = make(map[string]int64)
	r.throttles = 0
}
