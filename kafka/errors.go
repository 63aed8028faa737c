package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/segmentio/kafka-go"
)

// Common Kafka error types that can be used by consumers of this package.
// TranslateError wraps the underlying error with one of them, so both errors.Is on the
// sentinel and the original message are preserved.
var (
	// ErrConnectionFailed is returned when connection to Kafka cannot be established
	ErrConnectionFailed = errors.New("connection failed")

	// ErrConnectionLost is returned when connection to Kafka is lost
	ErrConnectionLost = errors.New("connection lost")

	// ErrBrokerNotAvailable is returned when broker is not available
	ErrBrokerNotAvailable = errors.New("broker not available")

	// ErrAuthenticationFailed is returned when authentication fails
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrAuthorizationFailed is returned when authorization fails
	ErrAuthorizationFailed = errors.New("authorization failed")

	// ErrTopicNotFound is returned when topic doesn't exist
	ErrTopicNotFound = errors.New("topic not found")

	// ErrMessageTooLarge is returned when message exceeds size limits
	ErrMessageTooLarge = errors.New("message too large")

	// ErrInvalidMessage is returned when an event cannot be encoded or decoded
	ErrInvalidMessage = errors.New("invalid message")

	// ErrLeaderNotAvailable is returned when leader is not available
	ErrLeaderNotAvailable = errors.New("leader not available")

	// ErrNotLeaderForPartition is returned when broker is not the leader for partition
	ErrNotLeaderForPartition = errors.New("not leader for partition")

	// ErrRebalanceInProgress is returned when rebalance is in progress
	ErrRebalanceInProgress = errors.New("rebalance in progress")

	// ErrRequestTimedOut is returned when request times out
	ErrRequestTimedOut = errors.New("request timed out")

	// ErrNetworkError is returned for network-related errors
	ErrNetworkError = errors.New("network error")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid config")

	// ErrClosed is returned when the publisher or follower was already closed
	ErrClosed = errors.New("kafka client closed")
)

// TranslateError converts Kafka-specific errors into the errors above.
// Broker error codes are matched first, then common message patterns. Errors that match
// nothing are returned unchanged; context errors are never wrapped.
func TranslateError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var kerr kafka.Error
	if errors.As(err, &kerr) {
		if sentinel := translateCode(kerr); sentinel != nil {
			return fmt.Errorf("%w: %w", sentinel, err)
		}
	}

	if sentinel := translateByErrorMessage(strings.ToLower(err.Error())); sentinel != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}

func translateCode(code kafka.Error) error {
	switch code {
	case kafka.SASLAuthenticationFailed, kafka.UnsupportedSASLMechanism, kafka.IllegalSASLState:
		return ErrAuthenticationFailed
	case kafka.TopicAuthorizationFailed, kafka.GroupAuthorizationFailed, kafka.ClusterAuthorizationFailed:
		return ErrAuthorizationFailed
	case kafka.UnknownTopicOrPartition:
		return ErrTopicNotFound
	case kafka.MessageSizeTooLarge, kafka.RecordListTooLarge:
		return ErrMessageTooLarge
	case kafka.LeaderNotAvailable:
		return ErrLeaderNotAvailable
	case kafka.NotLeaderForPartition:
		return ErrNotLeaderForPartition
	case kafka.RebalanceInProgress:
		return ErrRebalanceInProgress
	case kafka.RequestTimedOut:
		return ErrRequestTimedOut
	case kafka.BrokerNotAvailable:
		return ErrBrokerNotAvailable
	default:
		return nil
	}
}

// translateByErrorMessage translates errors based on error message patterns
func translateByErrorMessage(errMsg string) error {
	switch {
	case strings.Contains(errMsg, "connection refused"):
		return ErrConnectionFailed
	case strings.Contains(errMsg, "connection reset"),
		strings.Contains(errMsg, "connection closed"),
		strings.Contains(errMsg, "broken pipe"):
		return ErrConnectionLost
	case strings.Contains(errMsg, "broker not available"):
		return ErrBrokerNotAvailable
	case strings.Contains(errMsg, "sasl"),
		strings.Contains(errMsg, "authentication failed"):
		return ErrAuthenticationFailed
	case strings.Contains(errMsg, "authorization failed"):
		return ErrAuthorizationFailed
	case strings.Contains(errMsg, "unknown topic"),
		strings.Contains(errMsg, "topic not found"):
		return ErrTopicNotFound
	case strings.Contains(errMsg, "message too large"),
		strings.Contains(errMsg, "record too large"):
		return ErrMessageTooLarge
	case strings.Contains(errMsg, "leader not available"):
		return ErrLeaderNotAvailable
	case strings.Contains(errMsg, "not leader for partition"):
		return ErrNotLeaderForPartition
	case strings.Contains(errMsg, "rebalance in progress"):
		return ErrRebalanceInProgress
	case strings.Contains(errMsg, "timed out"),
		strings.Contains(errMsg, "timeout"):
		return ErrRequestTimedOut
	case strings.Contains(errMsg, "network"),
		strings.Contains(errMsg, "dial"):
		return ErrNetworkError
	default:
		return nil
	}
}

// IsRetryableError returns true if the error is retryable
func IsRetryableError(err error) bool {
	switch {
	case errors.Is(err, ErrConnectionFailed),
		errors.Is(err, ErrConnectionLost),
		errors.Is(err, ErrBrokerNotAvailable),
		errors.Is(err, ErrLeaderNotAvailable),
		errors.Is(err, ErrNotLeaderForPartition),
		errors.Is(err, ErrRequestTimedOut),
		errors.Is(err, ErrNetworkError),
		errors.Is(err, ErrRebalanceInProgress),
		errors.Is(err, context.DeadlineExceeded):
		return true
	default:
		return false
	}
}

// IsPermanentError returns true if the error is permanent and should not be retried
func IsPermanentError(err error) bool {
	switch {
	case errors.Is(err, ErrAuthenticationFailed),
		errors.Is(err, ErrAuthorizationFailed),
		errors.Is(err, ErrTopicNotFound),
		errors.Is(err, ErrMessageTooLarge),
		errors.Is(err, ErrInvalidMessage),
		errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrClosed),
		metadata.IsPermanentUpdaterError(err):
		return true
	default:
		return false
	}
}

// IsAuthenticationError returns true if the error is authentication-related
func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrAuthenticationFailed) || errors.Is(err, ErrAuthorizationFailed)
}
