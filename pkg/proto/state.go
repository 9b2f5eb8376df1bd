package proto

import "time"

// Update is one progress notification emitted on a stage transition.
type Update struct {
	QueryID  string         `json:"query_id"`
	Stage    Stage          `json:"stage"`
	Agent    Agent          `json:"agent,omitempty"`
	Response *ResponsePatch `json:"-"`
	Error    string         `json:"error,omitempty"`
	// Kind and FailedStage are only set on the StageError update.
	Kind        Kind      `json:"kind,omitempty"`
	FailedStage Stage     `json:"failed_stage,omitempty"`
	At          time.Time `json:"at"`
}

// Observer receives progress updates. Implementations must return promptly;
// the pipeline calls OnUpdate synchronously and in stage order.
type Observer interface {
	OnUpdate(u Update)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(u Update)

// OnUpdate calls f(u).
func (f ObserverFunc) OnUpdate(u Update) {
	f(u)
}

// NopObserver discards every update.
type NopObserver struct{}

// OnUpdate does nothing.
func (NopObserver) OnUpdate(Update) {}

// ProcessingState is the externally observed snapshot of one query.
//
// LastActiveStageOnError is non-nil if and only if Stage is StageError.
type ProcessingState struct {
	QueryID                string    `json:"query_id,omitempty"`
	Stage                  Stage     `json:"stage"`
	Response               *Response `json:"response,omitempty"`
	Error                  string    `json:"error,omitempty"`
	ErrorKind              Kind      `json:"error_kind,omitempty"`
	Agent                  Agent     `json:"agent,omitempty"`
	LastActiveStageOnError *Stage    `json:"last_active_stage_on_error,omitempty"`
}

// NewProcessingState returns the idle state.
func NewProcessingState() ProcessingState {
	return ProcessingState{Stage: StageIdle}
}

// Reset discards everything and returns to idle.
func (s *ProcessingState) Reset() {
	*s = NewProcessingState()
}

// IsLoading reports whether a query is in flight.
func (s *ProcessingState) IsLoading() bool {
	return s.Stage != StageIdle && !s.Stage.IsTerminal()
}

// Apply folds an update into the state and returns the new snapshot. The
// receiver is left untouched. Partial response fields are merged onto the
// accumulated response so earlier fields survive later transitions.
func (s ProcessingState) Apply(u Update) ProcessingState {
	next := s
	prevStage := s.Stage

	next.Stage = u.Stage
	if u.QueryID != "" {
		next.QueryID = u.QueryID
	}
	if u.Agent != "" {
		next.Agent = u.Agent
	}
	if u.Response != nil {
		next.Response = u.Response.MergeInto(s.Response)
	} else {
		next.Response = s.Response.Clone()
	}
	if u.Error != "" {
		next.Error = u.Error
	}

	if u.Stage == StageError {
		failed := u.FailedStage
		if failed == "" {
			failed = prevStage
		}
		next.LastActiveStageOnError = &failed
		next.ErrorKind = u.Kind
	} else {
		next.LastActiveStageOnError = nil
		next.ErrorKind = ""
		next.Error = ""
	}
	return next
}
