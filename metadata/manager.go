package metadata

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aalemi-dev/portmeta/observability"
	"github.com/aalemi-dev/portmeta/tracer"
)

// Manager owns the published snapshot map and the queue of pending diffs.
//
// Concurrency: the published *SnapshotMap lives in an atomic pointer and is swapped as a
// whole, so GetHandler, GetVersion and Snapshot never lock. mu guards only the pending
// queue and the pending version; it is never held while merging or while the Updater
// runs. publishMu serializes ProcessPendingUpdates and Bootstrap so that versions are
// published one at a time.
type Manager struct {
	cfg Config

	snapshots atomic.Pointer[SnapshotMap]

	mu         sync.Mutex
	pending    []Diff
	pendingVer atomic.Int64

	publishMu sync.Mutex

	mapper   IDMapper
	observer observability.Observer
	logger   Logger
	tracer   tracer.Tracer
}

// NewManager creates a Manager with an empty published map at version 0.
//
// Example:
//
//	mgr := metadata.NewManager(metadata.Config{PushTimeout: 5 * time.Second})
//
//	h := mgr.GetHandler(typeID)
//	h.OnFieldWritten("name", TypeString)
//	_ = mgr.SubmitHandler("Person", typeID, h)
//
//	if mgr.IsUpdatedSince(lastSeen) {
//	    err := mgr.ProcessPendingUpdates(ctx, updater)
//	    ...
//	}
func NewManager(cfg Config) *Manager {
	m := &Manager{
		cfg:    cfg.withDefaults(),
		mapper: DefaultIDMapper{},
	}
	m.snapshots.Store(emptySnapshotMap)
	return m
}

// WithObserver sets the observer for this manager and returns the manager for method chaining.
func (m *Manager) WithObserver(observer observability.Observer) *Manager {
	m.observer = observer
	return m
}

// WithLogger sets the logger for this manager and returns the manager for method chaining.
func (m *Manager) WithLogger(logger Logger) *Manager {
	m.logger = logger
	return m
}

// WithTracer sets the tracer used for reconciliation spans.
func (m *Manager) WithTracer(t tracer.Tracer) *Manager {
	m.tracer = t
	return m
}

// WithIDMapper replaces the field id mapper used by new handlers.
func (m *Manager) WithIDMapper(mapper IDMapper) *Manager {
	if mapper != nil {
		m.mapper = mapper
	}
	return m
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// GetHandler returns a new handler bound to typeID and to the snapshot currently
// published for it. An unknown type yields a handler with an empty base.
func (m *Manager) GetHandler(typeID TypeID) *Handler {
	snap, _ := m.snapshots.Load().Get(typeID)
	return newHandler(typeID, snap, m.mapper)
}

// SubmitHandler closes h if needed and queues its new fields as a pending diff.
// The pending version advances by one on every call, even when h found nothing new.
func (m *Manager) SubmitHandler(typeName string, typeID TypeID, h *Handler) error {
	if h == nil {
		return ErrNilHandler
	}
	if h.typeID != typeID {
		return fmt.Errorf("%w: handler for %d submitted as %d", ErrHandlerTypeMismatch, h.typeID, typeID)
	}
	if !h.closed {
		h.closed = true
	}

	if typeName == "" {
		typeName = h.base.TypeName()
	}
	if typeName == "" && h.IsUpdated() {
		return fmt.Errorf("%w: type %d", ErrEmptyTypeName, typeID)
	}

	m.mu.Lock()
	if h.IsUpdated() {
		m.pending = append(m.pending, Diff{TypeID: typeID, TypeName: typeName, Fields: h.NewFields()})
	}
	m.bumpPendingLocked()
	m.mu.Unlock()

	return nil
}

// Requeue puts diffs returned by a failed reconciliation back into the pending queue.
func (m *Manager) Requeue(diffs ...Diff) {
	if len(diffs) == 0 {
		return
	}

	m.mu.Lock()
	m.pending = append(m.pending, diffs...)
	m.bumpPendingLocked()
	m.mu.Unlock()

	m.logInfo(context.Background(), "Requeued metadata diffs", map[string]interface{}{
		"diffs": len(diffs),
	})
}

// bumpPendingLocked moves the pending version past both itself and the published
// version. Must be called with mu held.
func (m *Manager) bumpPendingLocked() {
	v := m.pendingVer.Load()
	if pub := m.snapshots.Load().version; v < pub {
		v = pub
	}
	m.pendingVer.Store(v + 1)
}

// GetVersion returns the last published version.
func (m *Manager) GetVersion() int64 {
	return m.snapshots.Load().version
}

// IsUpdatedSince reports whether something was submitted after oldVersion was
// published. False positives are possible, false negatives are not.
func (m *Manager) IsUpdatedSince(oldVersion int64) bool {
	return m.pendingVer.Load() > oldVersion
}

// PendingCount returns the number of queued diffs.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Snapshot returns the published snapshot of a type.
func (m *Manager) Snapshot(typeID TypeID) (*Snapshot, bool) {
	return m.snapshots.Load().Get(typeID)
}

// Snapshots returns the published snapshot map.
func (m *Manager) Snapshots() *SnapshotMap {
	return m.snapshots.Load()
}

// ProcessPendingUpdates drains the pending queue, merges it into a copy of the published
// map, pushes the newly merged fields to updater and, only if the push succeeds,
// publishes the new map under the next version.
//
// Failures leave the published map and version untouched. The drained diffs are not
// re-enqueued: they are returned inside the *ConflictError or *UpdateError so the caller
// can decide to Requeue them. A nil updater publishes without pushing.
func (m *Manager) ProcessPendingUpdates(ctx context.Context, updater Updater) (err error) {
	start := time.Now()

	m.publishMu.Lock()
	defer m.publishMu.Unlock()

	ctx, span := m.startSpan(ctx, "metadata.process_pending_updates")
	if span != nil {
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()
	}

	current := m.snapshots.Load()
	next := current.version + 1

	m.mu.Lock()
	diffs := m.pending
	m.pending = nil
	m.pendingVer.Store(next)
	m.mu.Unlock()

	types, updates, failedAt, err := mergeDiffs(current, diffs)
	if err != nil {
		if ce, ok := err.(*ConflictError); ok {
			ce.Diffs = diffs
			ce.Rejected = diffs[failedAt]
			ce.rejectedAt = failedAt + 1
		}
		m.logError(ctx, "Metadata reconciliation found a conflicting definition", err, map[string]interface{}{
			"version": current.version,
			"diffs":   len(diffs),
		})
		m.observeOperation("process_pending_updates", "registry", strconv.FormatInt(current.version, 10), time.Since(start), err, 0, map[string]interface{}{
			"diffs": len(diffs),
		})
		return err
	}

	fieldCount := CountFields(updates)
	if span != nil {
		span.SetAttributes(map[string]interface{}{
			"metadata.diffs":  len(diffs),
			"metadata.types":  len(updates),
			"metadata.fields": fieldCount,
		})
	}

	if updater != nil && len(updates) > 0 {
		pushCtx, cancel := m.pushContext(ctx)
		pushErr := updater.Push(pushCtx, updates)
		cancel()
		if pushErr != nil {
			err = &UpdateError{Err: pushErr, Diffs: diffs}
			m.logWarn(ctx, "Metadata updater failed, nothing published", pushErr, map[string]interface{}{
				"version": current.version,
				"types":   len(updates),
				"fields":  fieldCount,
			})
			m.observeOperation("process_pending_updates", "registry", strconv.FormatInt(current.version, 10), time.Since(start), err, int64(fieldCount), map[string]interface{}{
				"diffs": len(diffs),
			})
			return err
		}
	}

	m.snapshots.Store(&SnapshotMap{version: next, types: types})

	if len(updates) > 0 {
		m.logInfo(ctx, "Published metadata version", map[string]interface{}{
			"version": next,
			"types":   len(updates),
			"fields":  fieldCount,
		})
	}
	m.observeOperation("process_pending_updates", "registry", strconv.FormatInt(next, 10), time.Since(start), nil, int64(fieldCount), map[string]interface{}{
		"diffs": len(diffs),
		"types": len(updates),
	})
	return nil
}

// Bootstrap merges externally known metadata into the published map and publishes it
// under the next version without calling any Updater. It is meant for startup loading
// and for metadata learned from peers.
func (m *Manager) Bootstrap(updates []TypeUpdate) error {
	start := time.Now()

	m.publishMu.Lock()
	defer m.publishMu.Unlock()

	current := m.snapshots.Load()
	diffs := make([]Diff, 0, len(updates))
	for _, u := range updates {
		diffs = append(diffs, Diff(u))
	}

	types, merged, _, err := mergeDiffs(current, diffs)
	if err != nil {
		m.observeOperation("bootstrap", "registry", strconv.FormatInt(current.version, 10), time.Since(start), err, 0, nil)
		return err
	}

	next := current.version + 1
	m.mu.Lock()
	m.snapshots.Store(&SnapshotMap{version: next, types: types})
	if len(m.pending) > 0 && m.pendingVer.Load() <= next {
		m.pendingVer.Store(next + 1)
	}
	m.mu.Unlock()

	m.observeOperation("bootstrap", "registry", strconv.FormatInt(next, 10), time.Since(start), nil, int64(CountFields(merged)), map[string]interface{}{
		"types": len(updates),
	})
	return nil
}

// LoadFrom reads metadata from loader and publishes it with Bootstrap.
func (m *Manager) LoadFrom(ctx context.Context, loader Loader) error {
	updates, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load metadata: %w", err)
	}
	if err := m.Bootstrap(updates); err != nil {
		return err
	}

	m.logInfo(ctx, "Loaded metadata", map[string]interface{}{
		"types":   len(updates),
		"version": m.GetVersion(),
	})
	return nil
}

// mergeDiffs applies diffs on top of current and returns the new type map together
// with the fields that are actually new, grouped per type. current is not modified.
// On failure the index of the diff that could not be merged is returned.
func mergeDiffs(current *SnapshotMap, diffs []Diff) (map[TypeID]*Snapshot, map[TypeID]TypeUpdate, int, error) {
	if len(diffs) == 0 {
		return current.types, nil, 0, nil
	}

	types := make(map[TypeID]*Snapshot, len(current.types)+len(diffs))
	for id, s := range current.types {
		types[id] = s
	}

	updates := make(map[TypeID]TypeUpdate)
	for i, d := range diffs {
		merged, added, err := types[d.TypeID].merge(d.TypeID, d.TypeName, d.Fields)
		if err != nil {
			return nil, nil, i, err
		}
		types[d.TypeID] = merged
		if len(added) == 0 {
			continue
		}

		u := updates[d.TypeID]
		u.TypeID = d.TypeID
		u.TypeName = merged.typeName
		u.Fields = append(u.Fields, added...)
		updates[d.TypeID] = u
	}
	return types, updates, 0, nil
}

func (m *Manager) pushContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.PushTimeout > 0 {
		return context.WithTimeout(ctx, m.cfg.PushTimeout)
	}
	return context.WithCancel(ctx)
}

func (m *Manager) startSpan(ctx context.Context, name string) (context.Context, tracer.Span) {
	if m.tracer == nil {
		return ctx, nil
	}
	return m.tracer.StartSpan(ctx, name)
}
