package metadata

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// TypeID is the stable numeric identity of a named portable type.
type TypeID int32

// FieldID is the stable numeric identity of a field within a type.
type FieldID int32

// Field is a single (id, name, type) triple as known to the registry.
type Field struct {
	// ID is the field identifier, unique within its type
	ID FieldID `json:"id"`

	// Name is the field name as written by the encoder
	Name string `json:"name"`

	// Type is the wire type code of the field
	Type int32 `json:"type"`
}

// Diff is the immutable set of newly observed fields produced by one closed Handler.
// Once submitted to a Manager it is only ever read.
type Diff struct {
	TypeID   TypeID
	TypeName string
	Fields   []Field
}

// TypeUpdate is the per-type payload handed to an Updater and returned by a Loader.
// Fields contains only what is new relative to the previously published snapshot
// when produced by reconciliation, and the full field list when produced by a Loader.
type TypeUpdate struct {
	TypeID   TypeID  `json:"type_id"`
	TypeName string  `json:"type_name"`
	Fields   []Field `json:"fields"`
}

// TypeIDOf derives the type identifier from a type name.
// Names are case-insensitive.
func TypeIDOf(typeName string) TypeID {
	return TypeID(hashName(typeName))
}

// FieldIDOf derives the default field identifier from a field name.
// Names are case-insensitive.
func FieldIDOf(fieldName string) FieldID {
	return FieldID(hashName(fieldName))
}

func hashName(name string) int32 {
	h := xxhash.Sum64String(strings.ToLower(name))
	return int32(uint32(h) ^ uint32(h>>32)) //nolint:gosec
}
