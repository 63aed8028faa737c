package metadata

// Handler accumulates the fields written while one object of one type is encoded.
//
// A Handler belongs to a single encode operation and is not safe for concurrent use.
// It is created by Manager.GetHandler against the snapshot published at that moment,
// and records only the fields missing from that snapshot.
type Handler struct {
	typeID  TypeID
	base    *Snapshot
	mapper  IDMapper
	added   []Field
	byName  map[string]FieldID
	byID    map[FieldID]Field
	written int
	closed  bool
}

func newHandler(typeID TypeID, base *Snapshot, mapper IDMapper) *Handler {
	if mapper == nil {
		mapper = DefaultIDMapper{}
	}
	return &Handler{
		typeID: typeID,
		base:   base,
		mapper: mapper,
	}
}

// TypeID returns the type the handler was created for.
func (h *Handler) TypeID() TypeID {
	return h.typeID
}

// Base returns the snapshot the handler was created against, nil for an unknown type.
func (h *Handler) Base() *Snapshot {
	return h.base
}

// OnFieldWritten records that a field was written for the current object and returns
// its id. Fields already known to the base snapshot are only counted. A new name whose
// id is already taken by another field fails with a *ConflictError.
func (h *Handler) OnFieldWritten(fieldName string, fieldType int32) (FieldID, error) {
	if h.closed {
		return 0, ErrHandlerClosed
	}

	if id, ok := h.base.FieldID(fieldName); ok {
		h.written++
		return id, nil
	}
	if id, ok := h.byName[fieldName]; ok {
		h.written++
		return id, nil
	}

	f := Field{ID: h.mapper.FieldID(h.typeID, fieldName), Name: fieldName, Type: fieldType}
	existing, taken := h.base.Field(f.ID)
	if !taken {
		existing, taken = h.byID[f.ID]
	}
	if taken {
		return 0, &ConflictError{TypeID: h.typeID, TypeName: h.base.TypeName(), Existing: existing, Incoming: f}
	}

	if h.byName == nil {
		h.byName = make(map[string]FieldID)
		h.byID = make(map[FieldID]Field)
	}
	h.byName[fieldName] = f.ID
	h.byID[f.ID] = f
	h.added = append(h.added, f)
	h.written++
	return f.ID, nil
}

// IsUpdated reports whether any field unknown to the base snapshot was written.
func (h *Handler) IsUpdated() bool {
	return len(h.added) > 0
}

// FieldsWritten returns how many OnFieldWritten calls were accepted.
func (h *Handler) FieldsWritten() int {
	return h.written
}

// NewFields returns a copy of the fields recorded as new, in write order.
func (h *Handler) NewFields() []Field {
	out := make([]Field, len(h.added))
	copy(out, h.added)
	return out
}

// Closed reports whether Close was called.
func (h *Handler) Closed() bool {
	return h.closed
}

// Close finalizes the handler and returns its diff. The type name is filled in on
// submission. Closing twice returns ErrHandlerClosed.
func (h *Handler) Close() (Diff, error) {
	if h.closed {
		return Diff{}, ErrHandlerClosed
	}
	h.closed = true
	return Diff{TypeID: h.typeID, Fields: h.NewFields()}, nil
}
