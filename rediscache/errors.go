package rediscache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when a key does not exist
	ErrNotFound = errors.New("key not found")

	// ErrTxConflict is returned when a type kept changing under WATCH for every retry
	ErrTxConflict = errors.New("transaction conflict")

	// ErrConnectionFailed is returned when the server cannot be reached
	ErrConnectionFailed = errors.New("redis connection failed")

	// ErrTimeout is returned when a command exceeds its deadline
	ErrTimeout = errors.New("redis timeout")

	// ErrUnavailable is returned while the server is loading, read-only or failing over
	ErrUnavailable = errors.New("redis unavailable")

	// ErrAuthentication is returned when the server rejects the credentials
	ErrAuthentication = errors.New("redis authentication failed")

	// ErrClosed is returned after the cache has been closed
	ErrClosed = errors.New("redis client closed")

	// ErrInvalidData is returned when stored data cannot be decoded
	ErrInvalidData = errors.New("invalid stored metadata")
)

// TranslateError converts go-redis errors into the errors above.
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
	switch {
	case errors.Is(err, redis.Nil):
		return ErrNotFound
	case errors.Is(err, redis.TxFailedErr):
		return ErrTxConflict
	case errors.Is(err, redis.ErrClosed):
		return ErrClosed
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrTimeout
		}
		return ErrConnectionFailed
	}

	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "NOAUTH"), strings.HasPrefix(msg, "WRONGPASS"):
		return ErrAuthentication
	case strings.HasPrefix(msg, "LOADING"), strings.HasPrefix(msg, "READONLY"),
		strings.HasPrefix(msg, "CLUSTERDOWN"), strings.HasPrefix(msg, "TRYAGAIN"),
		strings.HasPrefix(msg, "MASTERDOWN"):
		return ErrUnavailable
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"):
		return ErrConnectionFailed
	case strings.Contains(msg, "pool timeout"), strings.Contains(msg, "i/o timeout"):
		return ErrTimeout
	default:
		return nil
	}
}

// IsRetryableError returns true if the error might be resolved by retrying the operation
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrTxConflict) ||
		errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrUnavailable)
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
