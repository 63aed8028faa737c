package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Common database error types that can be used by consumers of this package.
// TranslateError wraps the driver error with one of them.
var (
	// ErrRecordNotFound is returned when a query doesn't find any matching records
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when an insert violates a unique constraint
	ErrDuplicateKey = errors.New("duplicate key violation")

	// ErrConstraintViolation is returned for other constraint violations
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrDataTooLong is returned when data exceeds column length limits
	ErrDataTooLong = errors.New("data too long for column")

	// ErrConnectionFailed is returned when database connection cannot be established
	ErrConnectionFailed = errors.New("database connection failed")

	// ErrConnectionLost is returned when the connection was dropped
	ErrConnectionLost = errors.New("database connection lost")

	// ErrTooManyConnections is returned when the server refuses more connections
	ErrTooManyConnections = errors.New("too many connections")

	// ErrDeadlock is returned when a deadlock is detected during transaction
	ErrDeadlock = errors.New("deadlock detected")

	// ErrSerializationFailure is returned when a transaction must be retried
	ErrSerializationFailure = errors.New("serialization failure")

	// ErrLockTimeout is returned when unable to acquire lock within timeout
	ErrLockTimeout = errors.New("lock acquisition timeout")

	// ErrQueryTimeout is returned when a query exceeds the allowed timeout
	ErrQueryTimeout = errors.New("query timeout exceeded")

	// ErrPermissionDenied is returned when the user lacks necessary permissions
	ErrPermissionDenied = errors.New("permission denied")

	// ErrTableNotFound is returned when the metadata tables do not exist
	ErrTableNotFound = errors.New("table not found")

	// ErrConfigurationError is returned for invalid store configuration
	ErrConfigurationError = errors.New("configuration error")
)

// TranslateError converts gorm and driver errors into the errors above.
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
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrRecordNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	case errors.Is(err, gorm.ErrInvalidDB):
		return ErrConfigurationError
	case errors.Is(err, context.DeadlineExceeded):
		return ErrQueryTimeout
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return translatePostgreSQLError(pgErr)
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return translateMySQLError(mysqlErr)
	}

	return translateByErrorMessage(strings.ToLower(err.Error()))
}

// translatePostgreSQLError maps PostgreSQL error codes to custom errors
func translatePostgreSQLError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case "23505": // unique_violation
		return ErrDuplicateKey
	case "23502", "23503", "23514": // not_null, foreign_key, check
		return ErrConstraintViolation
	case "22001": // string_data_right_truncation
		return ErrDataTooLong
	case "08000", "08001", "08004": // connection_exception
		return ErrConnectionFailed
	case "08003", "08006", "57P01": // connection lost, admin_shutdown
		return ErrConnectionLost
	case "53300": // too_many_connections
		return ErrTooManyConnections
	case "40P01": // deadlock_detected
		return ErrDeadlock
	case "40001": // serialization_failure
		return ErrSerializationFailure
	case "55P03": // lock_not_available
		return ErrLockTimeout
	case "57014": // query_canceled
		return ErrQueryTimeout
	case "42501": // insufficient_privilege
		return ErrPermissionDenied
	case "42P01": // undefined_table
		return ErrTableNotFound
	default:
		return nil
	}
}

// translateMySQLError maps MySQL error codes to custom errors
func translateMySQLError(mysqlErr *mysql.MySQLError) error {
	switch mysqlErr.Number {
	case 1062, 1586: // ER_DUP_ENTRY
		return ErrDuplicateKey
	case 1048, 1364, 1452, 3819: // not null, foreign key, check
		return ErrConstraintViolation
	case 1406: // ER_DATA_TOO_LONG
		return ErrDataTooLong
	case 2002, 2003: // can't connect
		return ErrConnectionFailed
	case 2006, 2013: // server gone away, lost connection
		return ErrConnectionLost
	case 1040: // ER_CON_COUNT_ERROR
		return ErrTooManyConnections
	case 1213: // ER_LOCK_DEADLOCK
		return ErrDeadlock
	case 1205: // ER_LOCK_WAIT_TIMEOUT
		return ErrLockTimeout
	case 1044, 1045, 1142: // access denied
		return ErrPermissionDenied
	case 1146: // ER_NO_SUCH_TABLE
		return ErrTableNotFound
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
	case strings.Contains(errMsg, "bad connection"),
		strings.Contains(errMsg, "connection reset"),
		strings.Contains(errMsg, "broken pipe"):
		return ErrConnectionLost
	case strings.Contains(errMsg, "deadlock"):
		return ErrDeadlock
	case strings.Contains(errMsg, "timeout"):
		return ErrQueryTimeout
	default:
		return nil
	}
}

// IsRetryable returns true if the error might be resolved by retrying the operation
func IsRetryable(err error) bool {
	retryableErrors := []error{
		ErrConnectionFailed,
		ErrConnectionLost,
		ErrTooManyConnections,
		ErrDeadlock,
		ErrSerializationFailure,
		ErrLockTimeout,
		ErrQueryTimeout,
	}

	for _, retryableErr := range retryableErrors {
		if errors.Is(err, retryableErr) {
			return true
		}
	}
	return false
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
	if IsRetryable(err) {
		return err
	}
	return metadata.Permanent(err)
}
