package metrics

import "time"

type tee []Recorder

// Tee fans every observation out to each recorder. Nil recorders are skipped.
func Tee(recorders ...Recorder) Recorder {
	out := make(tee, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (t tee) ObserveRequest(model, stage string, promptTokens, completionTokens int, success bool, errorType string, duration time.Duration) {
	for _, r := range t {
		r.ObserveRequest(model, stage, promptTokens, completionTokens, success, errorType, duration)
	}
}

func (t tee) IncThrottle(model, reason string) {
	for _, r := range t {
		r.IncThrottle(model, reason)
	}
}

func (t tee) ObserveStage(stage string, duration time.Duration) {
	for _, r := range t {
		r.ObserveStage(stage, duration)
	}
}

func (t tee) IncQuery(outcome string) {
	for _, r := range t {
		r.IncQuery(outcome)
	}
}

func (t tee) IncRejection(reason string) {
	for _, r := range t {
		r.IncRejection(reason)
	}
}
