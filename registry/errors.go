package registry

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aalemi-dev/portmeta/metadata"
)

// Common authority errors
var (
	// ErrAuthorityConflict is returned when the authority already knows a different field
	// for a pushed id or name
	ErrAuthorityConflict = errors.New("authority rejected conflicting metadata")

	// ErrUnauthorized is returned when the authority rejects the credentials
	ErrUnauthorized = errors.New("authority rejected credentials")

	// ErrRejected is returned for any other client error reported by the authority
	ErrRejected = errors.New("authority rejected request")

	// ErrTypeNotFound is returned when a requested type is unknown to the authority
	ErrTypeNotFound = errors.New("type not found")

	// ErrUnavailable is returned when the authority cannot be reached or fails internally
	ErrUnavailable = errors.New("authority unavailable")

	// ErrInvalidResponse is returned when a response body cannot be decoded
	ErrInvalidResponse = errors.New("invalid authority response")
)

// StatusError is a non-2xx authority response.
type StatusError struct {
	StatusCode int
	Message    string
	kind       error
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.kind, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.kind, e.StatusCode, e.Message)
}

// Unwrap returns the sentinel matching the status code.
func (e *StatusError) Unwrap() error {
	return e.kind
}

// TranslateStatus maps an authority status code to an error. 2xx yields nil.
// Conflicts, auth failures and other 4xx responses are wrapped with metadata.Permanent
// so retry wrappers stop; 5xx and unexpected codes stay retryable.
func TranslateStatus(statusCode int, message string) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusConflict:
		return metadata.Permanent(&StatusError{StatusCode: statusCode, Message: message, kind: ErrAuthorityConflict})
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return metadata.Permanent(&StatusError{StatusCode: statusCode, Message: message, kind: ErrUnauthorized})
	case statusCode == http.StatusNotFound:
		return &StatusError{StatusCode: statusCode, Message: message, kind: ErrTypeNotFound}
	case statusCode == http.StatusTooManyRequests || statusCode == http.StatusRequestTimeout:
		return &StatusError{StatusCode: statusCode, Message: message, kind: ErrUnavailable}
	case statusCode >= 400 && statusCode < 500:
		return metadata.Permanent(&StatusError{StatusCode: statusCode, Message: message, kind: ErrRejected})
	default:
		return &StatusError{StatusCode: statusCode, Message: message, kind: ErrUnavailable}
	}
}

// IsRetryableError returns true if the request may succeed when repeated.
func IsRetryableError(err error) bool {
	if err == nil || metadata.IsPermanentUpdaterError(err) {
		return false
	}
	return errors.Is(err, ErrUnavailable)
}
