package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown source, report or processor type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrRunInProgress indicates a report run is already executing.
	ErrRunInProgress = errors.New("run in progress")

	// Batch Errors.

	// ErrPollExhausted indicates a batch job stayed pending for every poll attempt.
	ErrPollExhausted = errors.New("batch job poll attempts exhausted")

	// ErrJobFailed indicates a batch job finished without a result.
	ErrJobFailed = errors.New("batch job failed")

	// ErrNotNormalized indicates a micros column was read before conversion.
	ErrNotNormalized = errors.New("column not normalized")

	// Authentication Errors.

	// ErrAuthRequired indicates a connector requires credentials but none are configured.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthExpired indicates the authentication has expired and refresh failed.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrAuthInvalid indicates the authentication credentials are invalid.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrTokenRefreshFailed indicates token refresh operation failed.
	ErrTokenRefreshFailed = errors.New("token refresh failed")

	// Connector Errors.

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrPermissionDenied indicates the caller lacks access to a resource.
	ErrPermissionDenied = errors.New("permission denied")
)

// PollTimeoutError is returned when a batch job is still pending after the
// last poll attempt. The job itself is left untouched.
type PollTimeoutError struct {
	JobID      string
	LastStatus BatchJobStatus
	Attempts   int
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("batch job %s still %s after %d attempts", e.JobID, e.LastStatus, e.Attempts)
}

// Is matches ErrPollExhausted.
func (e *PollTimeoutError) Is(target error) bool {
	return target == ErrPollExhausted
}

// JobFailedError is returned when a batch job reaches a final status
// without a download URL.
type JobFailedError struct {
	JobID  string
	Status BatchJobStatus
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("batch job %s finished with status %s and no result", e.JobID, e.Status)
}

// Is matches ErrJobFailed.
func (e *JobFailedError) Is(target error) bool {
	return target == ErrJobFailed
}
