package metadata

// IDMapper resolves the field identifier for a field name of a given type.
// Implementations must be deterministic and safe for concurrent use: the same
// (type, name) pair must always resolve to the same FieldID.
type IDMapper interface {
	FieldID(typeID TypeID, fieldName string) FieldID
}

// IDMapperFunc adapts a plain function to the IDMapper interface.
type IDMapperFunc func(typeID TypeID, fieldName string) FieldID

// FieldID calls f(typeID, fieldName).
func (f IDMapperFunc) FieldID(typeID TypeID, fieldName string) FieldID {
	return f(typeID, fieldName)
}

// DefaultIDMapper derives field ids from lower-cased field names, independent of the type.
type DefaultIDMapper struct{}

// FieldID returns FieldIDOf(fieldName).
func (DefaultIDMapper) FieldID(_ TypeID, fieldName string) FieldID {
	return FieldIDOf(fieldName)
}
