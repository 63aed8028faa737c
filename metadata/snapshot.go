package metadata

import (
	"sort"
)

// Snapshot is the immutable known-fields view of one type at some version.
// Snapshots are shared by reference between readers and are never mutated;
// reconciliation supersedes them with new instances.
type Snapshot struct {
	typeID   TypeID
	typeName string
	fields   FieldSet
}

// NewSnapshot builds a snapshot for a type from its known fields.
func NewSnapshot(typeID TypeID, typeName string, fields ...Field) (*Snapshot, error) {
	set, err := NewFieldSet(fields...)
	if err != nil {
		if ce, ok := err.(*ConflictError); ok {
			ce.TypeID = typeID
			ce.TypeName = typeName
		}
		return nil, err
	}
	return &Snapshot{typeID: typeID, typeName: typeName, fields: set}, nil
}

// TypeID returns the identifier of the described type.
func (s *Snapshot) TypeID() TypeID {
	if s == nil {
		return 0
	}
	return s.typeID
}

// TypeName returns the name of the described type.
func (s *Snapshot) TypeName() string {
	if s == nil {
		return ""
	}
	return s.typeName
}

// HasField reports whether a field with the given name is known.
func (s *Snapshot) HasField(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.fields.byName[name]
	return ok
}

// HasFieldID reports whether a field with the given id is known.
func (s *Snapshot) HasFieldID(id FieldID) bool {
	if s == nil {
		return false
	}
	_, ok := s.fields.byID[id]
	return ok
}

// FieldID returns the id of the named field.
func (s *Snapshot) FieldID(name string) (FieldID, bool) {
	if s == nil {
		return 0, false
	}
	id, ok := s.fields.byName[name]
	return id, ok
}

// Field returns the field with the given id.
func (s *Snapshot) Field(id FieldID) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	return s.fields.ByID(id)
}

// Fields enumerates all known fields ordered by id.
func (s *Snapshot) Fields() []Field {
	if s == nil {
		return nil
	}
	return s.fields.Fields()
}

// Len returns the number of known fields.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return s.fields.Len()
}

// merge returns a new snapshot holding the union of s and add, plus the fields that
// were actually new. s may be nil for a type seen for the first time.
func (s *Snapshot) merge(typeID TypeID, typeName string, add []Field) (*Snapshot, []Field, error) {
	var base FieldSet
	name := typeName
	if s != nil {
		base = s.fields
		if s.typeName != "" && typeName != "" && s.typeName != typeName {
			return nil, nil, &ConflictError{TypeID: typeID, TypeName: s.typeName, IncomingTypeName: typeName}
		}
		if s.typeName != "" {
			name = s.typeName
		}
	}

	merged, added, err := MergeFieldSets(base, add)
	if err != nil {
		if ce, ok := err.(*ConflictError); ok {
			ce.TypeID = typeID
			ce.TypeName = name
		}
		return nil, nil, err
	}
	if s != nil && len(added) == 0 && name == s.typeName {
		return s, nil, nil
	}
	return &Snapshot{typeID: typeID, typeName: name, fields: merged}, added, nil
}

// SnapshotMap is the published, immutable view of all known types at one version.
// It is swapped as a whole; readers holding an old map keep a consistent view.
type SnapshotMap struct {
	version int64
	types   map[TypeID]*Snapshot
}

var emptySnapshotMap = &SnapshotMap{types: map[TypeID]*Snapshot{}}

// Version returns the version this map was published at.
func (m *SnapshotMap) Version() int64 {
	return m.version
}

// Get returns the snapshot of the given type.
func (m *SnapshotMap) Get(typeID TypeID) (*Snapshot, bool) {
	s, ok := m.types[typeID]
	return s, ok
}

// Len returns the number of known types.
func (m *SnapshotMap) Len() int {
	return len(m.types)
}

// TypeIDs returns the known type ids in ascending order.
func (m *SnapshotMap) TypeIDs() []TypeID {
	ids := make([]TypeID, 0, len(m.types))
	for id := range m.types {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
