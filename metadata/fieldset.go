package metadata

import (
	"sort"
)

// FieldSet is an immutable set of fields indexed by id and by name.
// The zero value is an empty set.
type FieldSet struct {
	byID   map[FieldID]Field
	byName map[string]FieldID
}

// NewFieldSet builds a FieldSet from fields. It fails with a *ConflictError if the
// id/name mapping of fields is not one-to-one or one id carries two types.
// Exact duplicates are collapsed.
func NewFieldSet(fields ...Field) (FieldSet, error) {
	merged, _, err := MergeFieldSets(FieldSet{}, fields)
	return merged, err
}

// Len returns the number of fields in the set.
func (s FieldSet) Len() int {
	return len(s.byID)
}

// ByID returns the field with the given id.
func (s FieldSet) ByID(id FieldID) (Field, bool) {
	f, ok := s.byID[id]
	return f, ok
}

// ByName returns the field with the given name.
func (s FieldSet) ByName(name string) (Field, bool) {
	id, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.byID[id], true
}

// Fields returns a copy of the fields ordered by id.
func (s FieldSet) Fields() []Field {
	out := make([]Field, 0, len(s.byID))
	for _, f := range s.byID {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MergeFieldSets returns the union of base and add, keyed by field id, together with
// the fields of add that were not already in base (ordered by id, deduplicated).
//
// base is never modified. A field id present in both with a different name or type,
// or a name bound to two ids, yields a *ConflictError carrying the first collision
// found in id order; TypeID and TypeName of the error are left for the caller to fill.
func MergeFieldSets(base FieldSet, add []Field) (FieldSet, []Field, error) {
	if len(add) == 0 {
		return base, nil, nil
	}

	incoming := make([]Field, len(add))
	copy(incoming, add)
	sort.SliceStable(incoming, func(i, j int) bool { return incoming[i].ID < incoming[j].ID })

	byID := make(map[FieldID]Field, len(base.byID)+len(incoming))
	byName := make(map[string]FieldID, len(base.byName)+len(incoming))
	for id, f := range base.byID {
		byID[id] = f
	}
	for name, id := range base.byName {
		byName[name] = id
	}

	var added []Field
	for _, f := range incoming {
		if existing, ok := byID[f.ID]; ok {
			if existing.Name != f.Name || existing.Type != f.Type {
				return base, nil, &ConflictError{Existing: existing, Incoming: f}
			}
			continue
		}
		if id, ok := byName[f.Name]; ok {
			return base, nil, &ConflictError{Existing: byID[id], Incoming: f}
		}
		byID[f.ID] = f
		byName[f.Name] = f.ID
		added = append(added, f)
	}

	if len(added) == 0 {
		return base, nil, nil
	}
	return FieldSet{byID: byID, byName: byName}, added, nil
}
