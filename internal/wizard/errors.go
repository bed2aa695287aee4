package wizard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotLastStep is returned by Submit when the current step is not the last visible one.
	ErrNotLastStep = errors.New("submit is only allowed from the last step")
	// ErrLastStep is returned by Next on the last visible step.
	ErrLastStep = errors.New("already on the last step")
	// ErrSubmitInFlight is returned when a submission is already running.
	ErrSubmitInFlight = errors.New("a submission is already in progress")
	// ErrCompleted is returned when the wizard has already been submitted.
	ErrCompleted = errors.New("questionnaire already submitted")
	// ErrSchemaMismatch is returned by a Submitter when the record is rejected as malformed.
	ErrSchemaMismatch = errors.New("submission rejected: schema mismatch")
)

// ValidationError lists the fields that blocked a transition, keyed by question key.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := e.Keys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "invalid answers: " + strings.Join(parts, ", ")
}

// Keys returns the offending keys, sorted.
func (e *ValidationError) Keys() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Missing returns the keys whose required value was empty, sorted.
func (e *ValidationError) Missing() []string {
	var keys []string
	for _, k := range e.Keys() {
		if e.Fields[k] == "required" {
			keys = append(keys, k)
		}
	}
	return keys
}

// SubmitError wraps a failed submission attempt.
type SubmitError struct {
	// Retryable is false when the record itself was rejected.
	Retryable bool
	Err       error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submitting answers: %v", e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// Message is the text shown to the visitor.
func (e *SubmitError) Message() string {
	if e.Retryable {
		return "We couldn't send your answers just now. Please try again."
	}
	return "Something went wrong with your submission. Please contact us directly."
}
