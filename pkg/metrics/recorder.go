// Package metrics provides metrics recording for model calls and pipeline runs.
package metrics

import "time"

// Recorder defines the interface for recording pipeline and model metrics.
type Recorder interface {
	// ObserveRequest records metrics for a completed model request.
	ObserveRequest(
		model, stage string,
		promptTokens, completionTokens int,
		success bool,
		errorType string,
		duration time.Duration,
	)

	// IncThrottle increments the throttle counter for outbound pacing events.
	IncThrottle(model, reason string)

	// ObserveStage records the time a query spent in a pipeline stage.
	ObserveStage(stage string, duration time.Duration)

	// IncQuery counts a finished query by outcome ("complete" or an error kind).
	IncQuery(outcome string)

	// IncRejection counts queries refused by the security gate.
	IncRejection(reason string)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveRequest(_, _ string, _, _ int, _ bool, _ string, _ time.Duration) {}

// IncThrottle does nothing in the no-op recorder.
func (n *NoopRecorder) IncThrottle(_, _ string) {}

// ObserveStage does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveStage(_ string, _ time.Duration) {}

// IncQuery does nothing in the no-op recorder.
func (n *NoopRecorder) IncQuery(_ string) {}

// IncRejection does nothing in the no-op recorder.
func (n *NoopRecorder) IncRejection(_ string) {}
