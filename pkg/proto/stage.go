// Package proto defines the vocabulary shared by the query pipeline and its
// observers: stages, responses, progress updates and the error taxonomy.
package proto

// Stage is one discrete step a query passes through.
type Stage string

const (
	// StageIdle is the state before any query has been submitted.
	StageIdle Stage = "IDLE"
	// StageSanitization covers rate limiting and content screening.
	StageSanitization Stage = "SANITIZATION"
	// StageRouting chooses the agent that handles the query.
	StageRouting Stage = "ROUTING"
	// StageSearching runs grounded retrieval or plain generation.
	StageSearching Stage = "SEARCHING"
	// StageDrafting holds the first generated answer.
	StageDrafting Stage = "DRAFTING"
	// StageRefining fact-checks and tightens the draft.
	StageRefining Stage = "REFINING"
	// StageValidating scores the refined answer.
	StageValidating Stage = "VALIDATING"
	// StageComplete is the terminal success state.
	StageComplete Stage = "COMPLETE"
	// StageError is the terminal failure state. It is not part of the linear order.
	StageError Stage = "ERROR"
)

// linearStages lists the stages in processing order.
//
//nolint:gochecknoglobals // fixed ordering table
var linearStages = []Stage{
	StageIdle,
	StageSanitization,
	StageRouting,
	StageSearching,
	StageDrafting,
	StageRefining,
	StageValidating,
	StageComplete,
}

// LinearStages returns the stages in processing order, Idle through Complete.
func LinearStages() []Stage {
	out := make([]Stage, len(linearStages))
	copy(out, linearStages)
	return out
}

// Order returns the position of the stage in the linear order, or -1 for
// StageError and unknown values.
func (s Stage) Order() int {
	for i, st := range linearStages {
		if st == s {
			return i
		}
	}
	return -1
}

// Before reports whether s comes strictly before other in the linear order.
// Stages outside the order are never before anything.
func (s Stage) Before(other Stage) bool {
	a, b := s.Order(), other.Order()
	return a >= 0 && b >= 0 && a < b
}

// IsTerminal reports whether no further transitions follow this stage.
func (s Stage) IsTerminal() bool {
	return s == StageComplete || s == StageError
}

// IsValid reports whether s is one of the declared stages.
func (s Stage) IsValid() bool {
	return s == StageError || s.Order() >= 0
}

func (s Stage) String() string {
	return string(s)
}

// Agent is the routing-selected behavioural variant.
type Agent string

const (
	// AgentSearch answers with grounded retrieval.
	AgentSearch Agent = "Search"
	// AgentGeneral answers from general knowledge without retrieval.
	AgentGeneral Agent = "General"
)

// ParseAgent returns the agent named by s. Only the two literal names are accepted.
func ParseAgent(s string) (Agent, bool) {
	switch Agent(s) {
	case AgentSearch:
		return AgentSearch, true
	case AgentGeneral:
		return AgentGeneral, true
	default:
		return "", false
	}
}

func (a Agent) String() string {
	return string(a)
}

// StageStatus describes how a stage should be presented for the current state.
type StageStatus string

const (
	StatusPending  StageStatus = "pending"
	StatusActive   StageStatus = "active"
	StatusComplete StageStatus = "complete"
	StatusError    StageStatus = "error"
	StatusSkipped  StageStatus = "skipped"
)

// StatusOf derives the display status of target from a processing state.
// Stages before the failed one read as complete after an error, and the
// search stage reads as skipped once a General query has moved past it.
func StatusOf(state *ProcessingState, target Stage) StageStatus {
	current := state.Stage

	if current == StageError {
		failed := StageIdle
		if state.LastActiveStageOnError != nil {
			failed = *state.LastActiveStageOnError
		}
		switch {
		case target == failed:
			return StatusError
		case target == StageSearching && state.Agent == AgentGeneral && failed.Order() > StageSearching.Order():
			return StatusSkipped
		case target.Before(failed):
			return StatusComplete
		default:
			return StatusPending
		}
	}

	if target == StageSearching && state.Agent == AgentGeneral && StageSearching.Before(current) {
		return StatusSkipped
	}

	switch {
	case target.Before(current), target == current && current == StageComplete:
		return StatusComplete
	case target == current:
		return StatusActive
	default:
		return StatusPending
	}
}
