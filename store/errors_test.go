package store

import (
	"context"
	"errors"
	"testing"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslatePostgreSQLError(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{"23505", ErrDuplicateKey},
		{"23503", ErrConstraintViolation},
		{"22001", ErrDataTooLong},
		{"08001", ErrConnectionFailed},
		{"57P01", ErrConnectionLost},
		{"53300", ErrTooManyConnections},
		{"40P01", ErrDeadlock},
		{"40001", ErrSerializationFailure},
		{"55P03", ErrLockTimeout},
		{"42501", ErrPermissionDenied},
		{"42P01", ErrTableNotFound},
	}
	for _, c := range cases {
		t.Run(c.code, func(t *testing.T) {
			err := TranslateError(&pgconn.PgError{Code: c.code})
			assert.ErrorIs(t, err, c.want)

			var pgErr *pgconn.PgError
			assert.True(t, errors.As(err, &pgErr), "driver error stays reachable")
		})
	}
}

func TestTranslateMySQLError(t *testing.T) {
	cases := []struct {
		number uint16
		want   error
	}{
		{1062, ErrDuplicateKey},
		{1406, ErrDataTooLong},
		{2003, ErrConnectionFailed},
		{2013, ErrConnectionLost},
		{1040, ErrTooManyConnections},
		{1213, ErrDeadlock},
		{1205, ErrLockTimeout},
		{1045, ErrPermissionDenied},
		{1146, ErrTableNotFound},
	}
	for _, c := range cases {
		err := TranslateError(&mysql.MySQLError{Number: c.number})
		assert.ErrorIs(t, err, c.want, "mysql error %d", c.number)

		var myErr *mysql.MySQLError
		assert.True(t, errors.As(err, &myErr), "driver error %d stays reachable", c.number)
	}
}

func TestTranslateError_Misc(t *testing.T) {
	assert.Nil(t, TranslateError(nil))
	assert.ErrorIs(t, TranslateError(gorm.ErrRecordNotFound), ErrRecordNotFound)
	assert.ErrorIs(t, TranslateError(gorm.ErrDuplicatedKey), ErrDuplicateKey)
	assert.ErrorIs(t, TranslateError(context.DeadlineExceeded), ErrQueryTimeout)

	plain := errors.New("something else")
	assert.Equal(t, plain, TranslateError(plain))
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify(nil))
	assert.Equal(t, context.Canceled, classify(context.Canceled))

	err := classify(&pgconn.PgError{Code: "40P01"})
	assert.True(t, IsRetryable(err))
	assert.False(t, metadata.IsPermanentUpdaterError(err))

	err = classify(&pgconn.PgError{Code: "42501"})
	assert.True(t, metadata.IsPermanentUpdaterError(err))
	assert.ErrorIs(t, err, ErrPermissionDenied)

	err = classify(&metadata.ConflictError{TypeID: 1, TypeName: "A", IncomingTypeName: "B"})
	assert.True(t, metadata.IsPermanentUpdaterError(err))
	assert.ErrorIs(t, err, metadata.ErrConflictingTypeName)
}
