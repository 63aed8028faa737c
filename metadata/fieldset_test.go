package metadata

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeIDOf_CaseInsensitive(t *testing.T) {
	assert.Equal(t, TypeIDOf("Person"), TypeIDOf("person"))
	assert.Equal(t, FieldIDOf("Name"), FieldIDOf("NAME"))
	assert.NotEqual(t, FieldIDOf("name"), FieldIDOf("age"))
}

func TestNewFieldSet(t *testing.T) {
	set, err := NewFieldSet(
		Field{ID: 2, Name: "b", Type: 1},
		Field{ID: 1, Name: "a", Type: 1},
		Field{ID: 2, Name: "b", Type: 1},
	)
	require.NoError(t, err)

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []Field{{ID: 1, Name: "a", Type: 1}, {ID: 2, Name: "b", Type: 1}}, set.Fields())

	f, ok := set.ByName("b")
	require.True(t, ok)
	assert.Equal(t, FieldID(2), f.ID)

	_, ok = set.ByID(3)
	assert.False(t, ok)
}

func TestFieldSet_ZeroValue(t *testing.T) {
	var set FieldSet
	assert.Equal(t, 0, set.Len())
	assert.Empty(t, set.Fields())
	_, ok := set.ByName("a")
	assert.False(t, ok)
}

func TestMergeFieldSets(t *testing.T) {
	base, err := NewFieldSet(Field{ID: 1, Name: "a", Type: 1})
	require.NoError(t, err)

	tests := []struct {
		name      string
		add       []Field
		wantAdded []Field
		wantLen   int
		wantErr   error
	}{
		{
			name:    "nothing to add",
			add:     nil,
			wantLen: 1,
		},
		{
			name:    "only known fields",
			add:     []Field{{ID: 1, Name: "a", Type: 1}},
			wantLen: 1,
		},
		{
			name:      "new fields sorted by id",
			add:       []Field{{ID: 5, Name: "e", Type: 2}, {ID: 3, Name: "c", Type: 2}},
			wantAdded: []Field{{ID: 3, Name: "c", Type: 2}, {ID: 5, Name: "e", Type: 2}},
			wantLen:   3,
		},
		{
			name:      "duplicates in one batch collapse",
			add:       []Field{{ID: 3, Name: "c", Type: 2}, {ID: 3, Name: "c", Type: 2}},
			wantAdded: []Field{{ID: 3, Name: "c", Type: 2}},
			wantLen:   2,
		},
		{
			name:    "same id different name",
			add:     []Field{{ID: 1, Name: "z", Type: 1}},
			wantErr: ErrConflictingField,
		},
		{
			name:    "same id different type",
			add:     []Field{{ID: 1, Name: "a", Type: 7}},
			wantErr: ErrConflictingField,
		},
		{
			name:    "same name different id",
			add:     []Field{{ID: 9, Name: "a", Type: 1}},
			wantErr: ErrConflictingField,
		},
		{
			name:    "conflict inside one batch",
			add:     []Field{{ID: 4, Name: "d", Type: 1}, {ID: 4, Name: "x", Type: 1}},
			wantErr: ErrConflictingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, added, err := MergeFieldSets(base, tt.add)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.Equal(t, base, merged)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAdded, added)
			assert.Equal(t, tt.wantLen, merged.Len())
		})
	}

	assert.Equal(t, 1, base.Len(), "base must not be modified")
}

func TestMergeFieldSets_ConflictDetails(t *testing.T) {
	base, err := NewFieldSet(Field{ID: 1, Name: "a", Type: 1})
	require.NoError(t, err)

	_, _, err = MergeFieldSets(base, []Field{{ID: 1, Name: "b", Type: 1}})

	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, Field{ID: 1, Name: "a", Type: 1}, ce.Existing)
	assert.Equal(t, Field{ID: 1, Name: "b", Type: 1}, ce.Incoming)
}

func TestSnapshot_NilSafe(t *testing.T) {
	var s *Snapshot
	assert.Equal(t, TypeID(0), s.TypeID())
	assert.Equal(t, "", s.TypeName())
	assert.False(t, s.HasField("a"))
	assert.False(t, s.HasFieldID(1))
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.Fields())
	_, ok := s.FieldID("a")
	assert.False(t, ok)
}

func TestSnapshot_MergeKeepsOriginal(t *testing.T) {
	s, err := NewSnapshot(10, "Person", Field{ID: 1, Name: "a", Type: 1})
	require.NoError(t, err)

	next, added, err := s.merge(10, "Person", []Field{{ID: 2, Name: "b", Type: 1}})
	require.NoError(t, err)

	assert.Len(t, added, 1)
	assert.Equal(t, 2, next.Len())
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.HasField("b"))

	same, added, err := next.merge(10, "Person", []Field{{ID: 2, Name: "b", Type: 1}})
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Same(t, next, same)
}

func TestSnapshot_MergeTypeNameConflict(t *testing.T) {
	s, err := NewSnapshot(10, "Person", Field{ID: 1, Name: "a", Type: 1})
	require.NoError(t, err)

	_, _, err = s.merge(10, "Animal", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflictingTypeName)
	assert.NotErrorIs(t, err, ErrConflictingField)
	assert.Contains(t, err.Error(), "Animal")
}

func TestNewSnapshot_ConflictFillsType(t *testing.T) {
	_, err := NewSnapshot(10, "Person", Field{ID: 1, Name: "a", Type: 1}, Field{ID: 1, Name: "b", Type: 1})

	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, TypeID(10), ce.TypeID)
	assert.Equal(t, "Person", ce.TypeName)
}
