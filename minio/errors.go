package minio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/minio/minio-go/v7"
)

// Common object storage error types that can be used by consumers of this package.
// These provide a standardized set of errors that abstract away the
// underlying MinIO-specific error details.
var (
	// ErrObjectNotFound is returned when an object doesn't exist in the bucket
	ErrObjectNotFound = errors.New("object not found")

	// ErrBucketNotFound is returned when a bucket doesn't exist
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrBucketAlreadyExists is returned when trying to create a bucket that already exists
	ErrBucketAlreadyExists = errors.New("bucket already exists")

	// ErrAccessDenied is returned when access is denied to bucket or object
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidCredentials is returned when credentials are invalid
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrCredentialsExpired is returned when credentials have expired
	ErrCredentialsExpired = errors.New("credentials expired")

	// ErrConnectionFailed is returned when connection to MinIO server fails
	ErrConnectionFailed = errors.New("connection failed")

	// ErrConnectionLost is returned when connection to MinIO server is lost
	ErrConnectionLost = errors.New("connection lost")

	// ErrTimeout is returned when operation times out
	ErrTimeout = errors.New("operation timeout")

	// ErrServerError is returned for internal MinIO server errors
	ErrServerError = errors.New("server error")

	// ErrServiceUnavailable is returned when MinIO service is unavailable
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTooManyRequests is returned when rate limit is exceeded
	ErrTooManyRequests = errors.New("too many requests")

	// ErrNetworkError is returned for network-related errors
	ErrNetworkError = errors.New("network error")

	// ErrQuotaExceeded is returned when storage quota is exceeded
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrInvalidArgument is returned when request arguments are invalid
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConfigurationError is returned for configuration-related errors
	ErrConfigurationError = errors.New("configuration error")

	// ErrInvalidDocument is returned when a stored type document cannot be decoded
	// or holds an inconsistent field set
	ErrInvalidDocument = errors.New("invalid type document")
)

// TranslateError converts MinIO-specific errors into the errors above.
// The original error stays reachable with errors.As. Unknown errors are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if sentinel := translate(err); sentinel != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}

func translate(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		return translateMinIOError(minioErr)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return ErrTimeout
		}
		return ErrNetworkError
	}

	return translateByErrorMessage(strings.ToLower(err.Error()))
}

// translateMinIOError maps MinIO error responses to custom errors
func translateMinIOError(minioErr minio.ErrorResponse) error {
	switch minioErr.Code {
	case "NoSuchKey":
		return ErrObjectNotFound
	case "NoSuchBucket":
		return ErrBucketNotFound
	case "BucketAlreadyExists", "BucketAlreadyOwnedByYou":
		return ErrBucketAlreadyExists
	case "AccessDenied":
		return ErrAccessDenied
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return ErrInvalidCredentials
	case "TokenRefreshRequired", "ExpiredToken":
		return ErrCredentialsExpired
	case "InvalidArgument", "InvalidRequest", "InvalidBucketName", "InvalidObjectName":
		return ErrInvalidArgument
	case "TooManyBuckets", "QuotaExceeded":
		return ErrQuotaExceeded
	case "SlowDown", "SlowDownRead", "SlowDownWrite":
		return ErrTooManyRequests
	case "RequestTimeout":
		return ErrTimeout
	case "ServiceUnavailable", "XMinioServerNotInitialized":
		return ErrServiceUnavailable
	case "InternalError":
		return ErrServerError
	}

	switch {
	case minioErr.StatusCode == http.StatusNotFound:
		return ErrObjectNotFound
	case minioErr.StatusCode == http.StatusForbidden:
		return ErrAccessDenied
	case minioErr.StatusCode == http.StatusTooManyRequests:
		return ErrTooManyRequests
	case minioErr.StatusCode == http.StatusServiceUnavailable:
		return ErrServiceUnavailable
	case minioErr.StatusCode >= 500:
		return ErrServerError
	default:
		return nil
	}
}

// translateByErrorMessage translates errors based on error message patterns
func translateByErrorMessage(errMsg string) error {
	switch {
	case strings.Contains(errMsg, "connection refused"),
		strings.Contains(errMsg, "no such host"):
		return ErrConnectionFailed
	case strings.Contains(errMsg, "connection reset"),
		strings.Contains(errMsg, "broken pipe"),
		strings.Contains(errMsg, "unexpected eof"):
		return ErrConnectionLost
	case strings.Contains(errMsg, "timeout"):
		return ErrTimeout
	default:
		return nil
	}
}

// IsRetryableError returns true if the error might be resolved by retrying the operation
func IsRetryableError(err error) bool {
	retryableErrors := []error{
		ErrConnectionFailed,
		ErrConnectionLost,
		ErrTimeout,
		ErrServerError,
		ErrServiceUnavailable,
		ErrTooManyRequests,
		ErrNetworkError,
	}

	for _, retryableErr := range retryableErrors {
		if errors.Is(err, retryableErr) {
			return true
		}
	}
	return false
}

func isBucketAlreadyExists(err error) bool {
	return errors.Is(err, ErrBucketAlreadyExists)
}

// classify translates err and marks everything that is neither retryable nor a
// context cancellation as permanent.
func classify(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	var ce *metadata.ConflictError
	if errors.As(err, &ce) {
		return metadata.Permanent(err)
	}

	err = TranslateError(err)
	if IsRetryableError(err) {
		return err
	}
	return metadata.Permanent(err)
}
