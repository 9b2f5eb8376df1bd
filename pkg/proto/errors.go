package proto

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindRateLimited               Kind = "rate_limited"
	KindPIIDetected               Kind = "pii_detected"
	KindPromptInjectionDetected   Kind = "prompt_injection_detected"
	KindInvalidRoutingDecision    Kind = "invalid_routing_decision"
	KindInvalidValidationDecision Kind = "invalid_validation_decision"
	KindExternalCapabilityFailure Kind = "external_capability_failure"
	KindCancelled                 Kind = "cancelled"
	KindUnknownFailure            Kind = "unknown_failure"
)

// User-facing messages for the fixed failure kinds.
const (
	MsgRateLimited           = "Rate limit exceeded. Please wait a moment before trying again."
	MsgPIIDetected           = "Potential PII detected. Please remove personal information from your query."
	MsgCredentialDetected    = "Potential credential detected. Please remove secrets and API keys from your query."
	MsgPromptInjection       = "Potential prompt injection attack detected. Query blocked."
	MsgInvalidRouting        = "The model returned an invalid routing decision. Please try again."
	MsgInvalidValidation     = "The model returned an invalid validation response. Please try again."
	MsgCancelled             = "The query was cancelled."
	MsgUnknownFailure        = "An unknown error occurred."
	msgExternalCapabilityFmt = "The language model request failed: %v"
)

// QueryError is the single error type surfaced by the pipeline. Stage is
// the stage that was active when the failure happened; it is filled in by
// the orchestrator.
type QueryError struct {
	Kind    Kind
	Stage   Stage
	Message string
	Err     error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

// Unwrap returns the underlying cause.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError creates an error of the given kind.
func NewQueryError(kind Kind, message string) *QueryError {
	return &QueryError{Kind: kind, Message: message}
}

// WrapQueryError creates an error of the given kind around a cause.
func WrapQueryError(kind Kind, cause error, message string) *QueryError {
	return &QueryError{Kind: kind, Message: message, Err: cause}
}

// ExternalFailure wraps a transport or service error from the language model.
func ExternalFailure(cause error) *QueryError {
	return &QueryError{
		Kind:    KindExternalCapabilityFailure,
		Message: fmt.Sprintf(msgExternalCapabilityFmt, cause),
		Err:     cause,
	}
}

// KindOf returns the kind of err, or KindUnknownFailure if it is not a QueryError.
func KindOf(err error) Kind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return KindUnknownFailure
}

// IsKind reports whether err is a QueryError of the given kind.
func IsKind(err error, kind Kind) bool {
	var qe *QueryError
	return errors.As(err, &qe) && qe.Kind == kind
}

// Classify converts any error into a QueryError. Errors that already are
// QueryErrors keep their kind; context errors become KindCancelled; the
// rest become KindUnknownFailure.
func Classify(err error) *QueryError {
	if err == nil {
		return nil
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return WrapQueryError(KindCancelled, err, MsgCancelled)
	}
	return WrapQueryError(KindUnknownFailure, err, err.Error())
}
