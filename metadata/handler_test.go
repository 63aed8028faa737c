package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_UnknownType(t *testing.T) {
	h := newHandler(1, nil, nil)

	id, err := h.OnFieldWritten("name", 9)
	require.NoError(t, err)
	assert.Equal(t, FieldIDOf("name"), id)

	again, err := h.OnFieldWritten("name", 9)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	assert.True(t, h.IsUpdated())
	assert.Equal(t, 2, h.FieldsWritten())
	assert.Equal(t, []Field{{ID: id, Name: "name", Type: 9}}, h.NewFields())
}

func TestHandler_KnownFieldsAreNotNew(t *testing.T) {
	base, err := NewSnapshot(1, "Person", Field{ID: 77, Name: "name", Type: 9})
	require.NoError(t, err)

	h := newHandler(1, base, nil)
	id, err := h.OnFieldWritten("name", 9)
	require.NoError(t, err)

	assert.Equal(t, FieldID(77), id, "published id wins over the mapper")
	assert.False(t, h.IsUpdated())
	assert.Empty(t, h.NewFields())
}

func TestHandler_CustomMapper(t *testing.T) {
	h := newHandler(1, nil, IDMapperFunc(func(_ TypeID, name string) FieldID {
		return FieldID(len(name))
	}))

	id, err := h.OnFieldWritten("abc", 1)
	require.NoError(t, err)
	assert.Equal(t, FieldID(3), id)
}

func TestHandler_Close(t *testing.T) {
	h := newHandler(5, nil, nil)
	_, err := h.OnFieldWritten("x", 1)
	require.NoError(t, err)

	diff, err := h.Close()
	require.NoError(t, err)
	assert.Equal(t, TypeID(5), diff.TypeID)
	assert.Len(t, diff.Fields, 1)
	assert.True(t, h.Closed())

	_, err = h.Close()
	assert.ErrorIs(t, err, ErrHandlerClosed)

	_, err = h.OnFieldWritten("y", 1)
	assert.ErrorIs(t, err, ErrHandlerClosed)
	assert.Equal(t, 1, h.FieldsWritten())
}

func TestHandler_NewFieldsIsCopy(t *testing.T) {
	h := newHandler(1, nil, nil)
	_, err := h.OnFieldWritten("x", 1)
	require.NoError(t, err)

	fields := h.NewFields()
	fields[0].Name = "changed"

	assert.Equal(t, "x", h.NewFields()[0].Name)
}

func TestHandler_IDCollisionWithinHandler(t *testing.T) {
	h := newHandler(TypeIDOf("Order"), nil, nil)

	id, err := h.OnFieldWritten("Total", 1)
	require.NoError(t, err)

	_, err = h.OnFieldWritten("total", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflictingField)

	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, TypeIDOf("Order"), ce.TypeID)
	assert.Equal(t, Field{ID: id, Name: "Total", Type: 1}, ce.Existing)
	assert.Equal(t, "total", ce.Incoming.Name)

	assert.Equal(t, 1, h.FieldsWritten())
	assert.Equal(t, []Field{{ID: id, Name: "Total", Type: 1}}, h.NewFields())
}

func TestHandler_IDCollisionWithBase(t *testing.T) {
	base, err := NewSnapshot(1, "Person", Field{ID: 3, Name: "name", Type: 9})
	require.NoError(t, err)

	h := newHandler(1, base, IDMapperFunc(func(TypeID, string) FieldID { return 3 }))
	_, err = h.OnFieldWritten("email", 9)

	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Person", ce.TypeName)
	assert.Equal(t, "name", ce.Existing.Name)
	assert.False(t, h.IsUpdated())
}
