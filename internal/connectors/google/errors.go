package google

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

// Common Google API errors.
var (
	// ErrUnauthorized indicates invalid or expired credentials.
	ErrUnauthorized = errors.New("google: unauthorised (invalid credentials)")

	// ErrForbidden indicates insufficient permissions.
	ErrForbidden = errors.New("google: forbidden (insufficient permissions)")

	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("google: resource not found")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("google: rate limit exceeded")
)

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || hasCode(err, http.StatusUnauthorized)
}

// IsForbidden returns true if the error indicates insufficient permissions.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden) || hasCode(err, http.StatusForbidden)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || hasCode(err, http.StatusNotFound)
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited) || hasCode(err, http.StatusTooManyRequests)
}

func hasCode(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}

// WrapError converts a Google API error to a specific error that also
// matches the domain sentinel. The API message is kept.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	var specific, sentinel error
	switch gerr.Code {
	case http.StatusUnauthorized:
		specific, sentinel = ErrUnauthorized, domain.ErrAuthInvalid
	case http.StatusForbidden:
		specific, sentinel = ErrForbidden, domain.ErrPermissionDenied
	case http.StatusNotFound:
		specific, sentinel = ErrNotFound, domain.ErrNotFound
	case http.StatusTooManyRequests:
		specific, sentinel = ErrRateLimited, domain.ErrRateLimited
	default:
		return err
	}
	if gerr.Message == "" {
		return fmt.Errorf("%w (%w)", specific, sentinel)
	}
	return fmt.Errorf("%w (%w): %s", specific, sentinel, gerr.Message)
}

// CheckResponse turns a non-2xx REST response into a wrapped googleapi error.
// The body is consumed on error.
func CheckResponse(resp *http.Response) error {
	return WrapError(googleapi.CheckResponse(resp))
}
