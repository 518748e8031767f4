package submissions

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for unknown job IDs and for jobs owned by a
	// different user.
	ErrNotFound = errors.New("submission not found")
	// ErrTerminal is returned when mutating a submission that already
	// reached a final status.
	ErrTerminal = errors.New("submission already finalized")
)

// AlreadyProcessingError rejects a duplicate active submission. It carries the
// existing job ID so the client can resume polling instead of retrying.
type AlreadyProcessingError struct {
	JobID string
}

func (e *AlreadyProcessingError) Error() string {
	return fmt.Sprintf("submission %s is already processing", e.JobID)
}

// ValidationError rejects a malformed create request before any record is
// written.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Stable error codes surfaced to clients.
const (
	ErrorCodeInvalidInput      = "invalid_input"
	ErrorCodeAlreadyProcessing = "already_processing"
	ErrorCodeNoAnalyzableVideo = "no_analyzable_video"
	ErrorCodeTimeout           = "timeout"
	ErrorCodeInternal          = "internal_error"
)
