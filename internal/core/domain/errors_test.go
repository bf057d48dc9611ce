package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrAlreadyExists", ErrAlreadyExists},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrNotImplemented", ErrNotImplemented},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrRunInProgress", ErrRunInProgress},
		{"ErrPollExhausted", ErrPollExhausted},
		{"ErrJobFailed", ErrJobFailed},
		{"ErrNotNormalized", ErrNotNormalized},
		{"ErrAuthRequired", ErrAuthRequired},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrPermissionDenied", ErrPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// TestErrors_Uniqueness tests that all errors are distinct
func TestErrors_Uniqueness(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrAlreadyExists,
		ErrInvalidInput,
		ErrNotImplemented,
		ErrUnsupportedType,
		ErrRunInProgress,
		ErrPollExhausted,
		ErrJobFailed,
		ErrNotNormalized,
		ErrAuthRequired,
		ErrAuthExpired,
		ErrAuthInvalid,
		ErrTokenRefreshFailed,
		ErrRateLimited,
		ErrPermissionDenied,
	}

	for i, err1 := range allErrors {
		for j, err2 := range allErrors {
			if i != j {
				assert.False(t, errors.Is(err1, err2),
					"Error %v should not match error %v", err1, err2)
			}
		}
	}
}

func TestPollTimeoutError(t *testing.T) {
	err := &PollTimeoutError{JobID: "customers/1/batchJobs/2", LastStatus: BatchJobActive, Attempts: 5}

	assert.Equal(t, "batch job customers/1/batchJobs/2 still ACTIVE after 5 attempts", err.Error())
	assert.True(t, errors.Is(err, ErrPollExhausted))
	assert.False(t, errors.Is(err, ErrJobFailed))

	wrapped := fmt.Errorf("poll: %w", err)
	assert.True(t, errors.Is(wrapped, ErrPollExhausted))

	var target *PollTimeoutError
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, 5, target.Attempts)
}

func TestJobFailedError(t *testing.T) {
	err := &JobFailedError{JobID: "job", Status: BatchJobCanceled}

	assert.Contains(t, err.Error(), "CANCELED")
	assert.True(t, errors.Is(err, ErrJobFailed))
	assert.False(t, errors.Is(err, ErrPollExhausted))
}

// TestErrors_WithWrapping tests error wrapping behavior
func TestErrors_WithWrapping(t *testing.T) {
	wrappedErr := errors.Join(ErrNotFound, errors.New("additional context"))

	assert.True(t, errors.Is(wrappedErr, ErrNotFound))
	assert.Contains(t, wrappedErr.Error(), "not found")
}
