package metadata

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("x"), false},
		{"updater failure", &UpdateError{Err: errors.New("timeout")}, true},
		{"wrapped updater failure", fmt.Errorf("reconcile: %w", &UpdateError{Err: errors.New("timeout")}), true},
		{"permanent updater failure", &UpdateError{Err: Permanent(errors.New("rejected"))}, false},
		{"cancelled push", &UpdateError{Err: context.Canceled}, false},
		{"field conflict", &ConflictError{}, false},
		{"type name conflict", &ConflictError{IncomingTypeName: "B"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.err))
		})
	}
}

func TestIsPermanentError(t *testing.T) {
	assert.True(t, IsPermanentError(ErrHandlerClosed))
	assert.True(t, IsPermanentError(fmt.Errorf("wrap: %w", ErrEmptyTypeName)))
	assert.True(t, IsPermanentError(&ConflictError{}))
	assert.False(t, IsPermanentError(&UpdateError{Err: errors.New("x")}))
	assert.False(t, IsPermanentError(nil))
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))

	base := errors.New("rejected")
	err := Permanent(base)
	assert.Equal(t, "rejected", err.Error())
	assert.ErrorIs(t, err, base)
	assert.True(t, IsPermanentUpdaterError(fmt.Errorf("push: %w", err)))
}

func TestConflictError_Message(t *testing.T) {
	field := &ConflictError{
		TypeID:   1,
		TypeName: "Person",
		Existing: Field{ID: 3, Name: "a", Type: 1},
		Incoming: Field{ID: 3, Name: "b", Type: 1},
	}
	assert.Contains(t, field.Error(), `name="a"`)
	assert.Contains(t, field.Error(), `name="b"`)

	typeName := &ConflictError{TypeID: 1, TypeName: "Person", IncomingTypeName: "Animal"}
	assert.Equal(t, `conflicting type name: type 1 is known as "Person", submitted as "Animal"`, typeName.Error())
}

func TestConflictError_Remaining(t *testing.T) {
	person := Diff{TypeID: 1, TypeName: "Person", Fields: []Field{{ID: 1, Name: "a", Type: 1}}}
	orderA := Diff{TypeID: 2, TypeName: "Order", Fields: []Field{{ID: 5, Name: "Total", Type: 1}}}
	orderB := Diff{TypeID: 2, TypeName: "Order", Fields: []Field{{ID: 5, Name: "total", Type: 1}}}

	known := &ConflictError{TypeID: 2, Diffs: []Diff{person, orderA, orderB}, Rejected: orderB, rejectedAt: 3}
	assert.Equal(t, []Diff{person, orderA}, known.Remaining())

	unknown := &ConflictError{TypeID: 2, Diffs: []Diff{person, orderA, orderB}}
	assert.Equal(t, []Diff{person}, unknown.Remaining())

	assert.Empty(t, (&ConflictError{}).Remaining())
}
