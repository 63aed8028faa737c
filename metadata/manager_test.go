package metadata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aalemi-dev/portmeta/tracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUpdater struct {
	mu    sync.Mutex
	calls []map[TypeID]TypeUpdate
	err   error
}

func (u *recordingUpdater) Push(_ context.Context, updates map[TypeID]TypeUpdate) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, updates)
	return u.err
}

func (u *recordingUpdater) Calls() []map[TypeID]TypeUpdate {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]map[TypeID]TypeUpdate, len(u.calls))
	copy(out, u.calls)
	return out
}

func writeFields(t *testing.T, m *Manager, typeName string, names ...string) {
	t.Helper()
	typeID := TypeIDOf(typeName)
	h := m.GetHandler(typeID)
	for _, n := range names {
		_, err := h.OnFieldWritten(n, 1)
		require.NoError(t, err)
	}
	require.NoError(t, m.SubmitHandler(typeName, typeID, h))
}

func TestNewManager_Empty(t *testing.T) {
	m := NewManager(Config{})

	assert.Equal(t, int64(0), m.GetVersion())
	assert.False(t, m.IsUpdatedSince(0))
	assert.Equal(t, 0, m.PendingCount())
	assert.Equal(t, 0, m.Snapshots().Len())
	assert.Equal(t, DefaultPushTimeout, m.Config().PushTimeout)
	assert.Equal(t, DefaultReconcileInterval, m.Config().ReconcileInterval)
}

func TestManager_SubmitAndProcess(t *testing.T) {
	m := NewManager(Config{})
	upd := &recordingUpdater{}

	writeFields(t, m, "Person", "name", "age")

	assert.True(t, m.IsUpdatedSince(0))
	assert.Equal(t, 1, m.PendingCount())
	_, ok := m.Snapshot(TypeIDOf("Person"))
	assert.False(t, ok, "nothing is published before reconciliation")

	require.NoError(t, m.ProcessPendingUpdates(context.Background(), upd))

	assert.Equal(t, int64(1), m.GetVersion())
	assert.False(t, m.IsUpdatedSince(1))
	assert.Equal(t, 0, m.PendingCount())

	snap, ok := m.Snapshot(TypeIDOf("Person"))
	require.True(t, ok)
	assert.Equal(t, "Person", snap.TypeName())
	assert.True(t, snap.HasField("name"))
	assert.True(t, snap.HasField("age"))

	calls := upd.Calls()
	require.Len(t, calls, 1)
	update := calls[0][TypeIDOf("Person")]
	assert.Equal(t, "Person", update.TypeName)
	assert.Len(t, update.Fields, 2)
}

func TestManager_RoundTrip(t *testing.T) {
	m := NewManager(Config{})
	writeFields(t, m, "Person", "name")
	require.NoError(t, m.ProcessPendingUpdates(context.Background(), nil))

	h := m.GetHandler(TypeIDOf("Person"))
	id, err := h.OnFieldWritten("name", 1)
	require.NoError(t, err)

	assert.Equal(t, FieldIDOf("name"), id)
	assert.False(t, h.IsUpdated())
	require.NoError(t, m.SubmitHandler("Person", TypeIDOf("Person"), h))
	assert.Equal(t, 0, m.PendingCount())
}

func TestManager_EmptyReconcile(t *testing.T) {
	m := NewManager(Config{})
	upd := &recordingUpdater{}

	require.NoError(t, m.ProcessPendingUpdates(context.Background(), upd))
	require.NoError(t, m.ProcessPendingUpdates(context.Background(), upd))

	assert.Equal(t, int64(2), m.GetVersion())
	assert.False(t, m.IsUpdatedSince(2))
	assert.Empty(t, upd.Calls(), "updater is not called when nothing is new")
}

func TestManager_SubmitWithoutNewFieldsBumpsPendingVersion(t *testing.T) {
	m := NewManager(Config{})
	writeFields(t, m, "Person", "name")
	require.NoError(t, m.ProcessPendingUpdates(context.Background(), nil))
	v := m.GetVersion()

	writeFields(t, m, "Person", "name")

	assert.True(t, m.IsUpdatedSince(v))
	assert.Equal(t, 0, m.PendingCount())

	require.NoError(t, m.ProcessPendingUpdates(context.Background(), nil))
	assert.False(t, m.IsUpdatedSince(m.GetVersion()))
}

func TestManager_AlreadyPublishedFieldsAreNotPushedAgain(t *testing.T) {
	m := NewManager(Config{})
	upd := &recordingUpdater{}

	// Two handlers taken from the same empty snapshot both report "name".
	typeID := TypeIDOf("Person")
	h1 := m.GetHandler(typeID)
	h2 := m.GetHandler(typeID)
	_, _ = h1.OnFieldWritten("name", 1)
	_, _ = h2.OnFieldWritten("name", 1)
	_, _ = h2.OnFieldWritten("age", 1)
	require.NoError(t, m.SubmitHandler("Person", typeID, h1))
	require.NoError(t, m.SubmitHandler("Person", typeID, h2))

	require.NoError(t, m.ProcessPendingUpdates(context.Background(), upd))

	calls := upd.Calls()
	require.Len(t, calls, 1)
	assert.Len(t, calls[0][typeID].Fields, 2)
}

func TestManager_VersionIsMonotonic(t *testing.T) {
	m := NewManager(Config{})

	last := m.GetVersion()
	for i := 0; i < 10; i++ {
		if i%2 == 0 {
			writeFields(t, m, "Person", fmt.Sprintf("f%d", i))
		}
		require.NoError(t, m.ProcessPendingUpdates(context.Background(), nil))
		v := m.GetVersion()
		assert.Equal(t, last+1, v)
		last = v
	}
	snap, ok := m.Snapshot(TypeIDOf("Person"))
	require.True(t, ok)
	assert.Equal(t, 5, snap.Len())
}

func TestManager_UpdaterFailure(t *testing.T) {
	m := NewManager(Config{})
	writeFields(t, m, "Person", "name")
	require.NoError(t, m.ProcessPendingUpdates(context.Background(), nil))
	before := m.Snapshots()

	writeFields(t, m, "Person", "age")
	upd := &recordingUpdater{err: errors.New("authority unavailable")}

	err := m.ProcessPendingUpdates(context.Background(), upd)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpdaterFailed)
	assert.True(t, IsRetryableError(err))

	var ue *UpdateError
	require.ErrorAs(t, err, &ue)
	require.Len(t, ue.Diffs, 1)
	assert.Equal(t, "age", ue.Diffs[0].Fields[0].Name)

	assert.Equal(t, int64(1), m.GetVersion())
	assert.Same(t, before, m.Snapshots())
	snap, _ := m.Snapshot(TypeIDOf("Person"))
	assert.False(t, snap.HasField("age"))
	assert.Equal(t, 0, m.PendingCount(), "failed diffs are not re-enqueued")
	assert.True(t, m.IsUpdatedSince(m.GetVersion()))

	m.Requeue(ue.Diffs...)
	upd.err = nil
	require.NoError(t, m.ProcessPendingUpdates(context.Background(), upd))

	snap, _ = m.Snapshot(TypeIDOf("Person"))
	assert.True(t, snap.HasField("age"))
	assert.Equal(t, int64(2), m.GetVersion())
}

func TestManager_PermanentUpdaterError(t *testing.T) {
	m := NewManager(Config{})
	writeFields(t, m, "Person", "name")

	err := m.ProcessPendingUpdates(context.Background(), UpdaterFunc(func(context.Context, map[TypeID]TypeUpdate) error {
		return Permanent(errors.New("rejected"))
	}))

	assert.ErrorIs(t, err, ErrUpdaterFailed)
	assert.False(t, IsRetryableError(err))
	assert.True(t, IsPermanentError(err))
}

func TestManager_Conflict(t *testing.T) {
	m := NewManager(Config{}).WithIDMapper(IDMapperFunc(func(_ TypeID, name string) FieldID {
		return 1
	}))
	upd := &recordingUpdater{}

	writeFields(t, m, "Person", "name")
	writeFields(t, m, "Person", "email")
	err := m.ProcessPendingUpdates(context.Background(), upd)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflictingField)
	assert.False(t, IsRetryableError(err))

	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, TypeIDOf("Person"), ce.TypeID)
	assert.Equal(t, "name", ce.Existing.Name)
	assert.Equal(t, "email", ce.Incoming.Name)
	assert.Len(t, ce.Diffs, 2)
	assert.Equal(t, "email", ce.Rejected.Fields[0].Name)
	require.Len(t, ce.Remaining(), 1)
	assert.Equal(t, "name", ce.Remaining()[0].Fields[0].Name)

	assert.Equal(t, int64(0), m.GetVersion())
	assert.Empty(t, upd.Calls(), "a conflicting batch never reaches the updater")

	m.Requeue(ce.Remaining()...)
	require.NoError(t, m.ProcessPendingUpdates(context.Background(), upd))
	snap, _ := m.Snapshot(TypeIDOf("Person"))
	assert.Equal(t, 1, snap.Len())
	assert.True(t, snap.HasField("name"))
}

func TestManager_ConflictRemainingKeepsOtherTypes(t *testing.T) {
	m := NewManager(Config{})

	writeFields(t, m, "Person", "name")
	writeFields(t, m, "Order", "Total")
	writeFields(t, m, "Order", "total")
	err := m.ProcessPendingUpdates(context.Background(), nil)

	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, TypeIDOf("Order"), ce.TypeID)
	assert.Equal(t, "total", ce.Rejected.Fields[0].Name)

	remaining := ce.Remaining()
	require.Len(t, remaining, 2)
	assert.Equal(t, TypeIDOf("Person"), remaining[0].TypeID)
	assert.Equal(t, TypeIDOf("Order"), remaining[1].TypeID)
}

func TestManager_TypeNameConflict(t *testing.T) {
	m := NewManager(Config{})
	typeID := TypeID(42)

	h := m.GetHandler(typeID)
	_, _ = h.OnFieldWritten("a", 1)
	require.NoError(t, m.SubmitHandler("Person", typeID, h))
	require.NoError(t, m.ProcessPendingUpdates(context.Background(), nil))

	h = m.GetHandler(typeID)
	_, _ = h.OnFieldWritten("b", 1)
	require.NoError(t, m.SubmitHandler("Animal", typeID, h))

	err := m.ProcessPendingUpdates(context.Background(), nil)
	assert.ErrorIs(t, err, ErrConflictingTypeName)
	assert.Equal(t, int64(1), m.GetVersion())
}

func TestManager_SubmitHandlerValidation(t *testing.T) {
	m := NewManager(Config{})

	assert.ErrorIs(t, m.SubmitHandler("Person", 1, nil), ErrNilHandler)

	h := m.GetHandler(1)
	assert.ErrorIs(t, m.SubmitHandler("Person", 2, h), ErrHandlerTypeMismatch)

	_, _ = h.OnFieldWritten("a", 1)
	assert.ErrorIs(t, m.SubmitHandler("", 1, h), ErrEmptyTypeName)
	assert.Equal(t, 0, m.PendingCount())
}

func TestManager_SubmitHandlerUsesPublishedTypeName(t *testing.T) {
	m := NewManager(Config{})
	writeFields(t, m, "Person", "name")
	require.NoError(t, m.ProcessPendingUpdates(context.Background(), nil))

	typeID := TypeIDOf("Person")
	h := m.GetHandler(typeID)
	_, _ = h.OnFieldWritten("age", 1)
	require.NoError(t, m.SubmitHandler("", typeID, h))
	require.NoError(t, m.ProcessPendingUpdates(context.Background(), nil))

	snap, _ := m.Snapshot(typeID)
	assert.Equal(t, "Person", snap.TypeName())
	assert.True(t, snap.HasField("age"))
}

func TestManager_SubmitClosesHandler(t *testing.T) {
	m := NewManager(Config{})
	h := m.GetHandler(1)
	require.NoError(t, m.SubmitHandler("T", 1, h))

	assert.True(t, h.Closed())
	_, err := h.OnFieldWritten("late", 1)
	assert.ErrorIs(t, err, ErrHandlerClosed)
}

func TestManager_ConcurrentSubmit(t *testing.T) {
	m := NewManager(Config{})
	upd := &recordingUpdater{}

	const workers = 100
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			typeName := fmt.Sprintf("Type%d", i%5)
			typeID := TypeIDOf(typeName)
			h := m.GetHandler(typeID)
			_, _ = h.OnFieldWritten("shared", 1)
			_, _ = h.OnFieldWritten(fmt.Sprintf("field%d", i), 1)
			assert.NoError(t, m.SubmitHandler(typeName, typeID, h))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, workers, m.PendingCount())
	require.NoError(t, m.ProcessPendingUpdates(context.Background(), upd))

	total := 0
	for i := 0; i < 5; i++ {
		snap, ok := m.Snapshot(TypeIDOf(fmt.Sprintf("Type%d", i)))
		require.True(t, ok)
		assert.Equal(t, workers/5+1, snap.Len())
		total += snap.Len()
	}
	assert.Equal(t, total, CountFields(upd.Calls()[0]))
}

func TestManager_ConcurrentReadersDuringReconcile(t *testing.T) {
	m := NewManager(Config{})
	writeFields(t, m, "Person", "name")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				v := m.GetVersion()
				h := m.GetHandler(TypeIDOf("Person"))
				_, _ = h.OnFieldWritten("name", 1)
				if err := m.SubmitHandler("Person", TypeIDOf("Person"), h); err != nil {
					t.Error(err)
					return
				}
				if !m.IsUpdatedSince(v) {
					t.Error("submission after version was not visible")
					return
				}
			}
		}()
	}

	for i := 0; i < 20; i++ {
		require.NoError(t, m.ProcessPendingUpdates(context.Background(), nil))
	}
	cancel()
	wg.Wait()

	assert.Equal(t, int64(20), m.GetVersion())
	snap, _ := m.Snapshot(TypeIDOf("Person"))
	assert.Equal(t, 1, snap.Len())
}

func TestManager_ConcurrentProcessCallsSerialize(t *testing.T) {
	m := NewManager(Config{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			writeFields(t, m, "Person", fmt.Sprintf("f%d", i))
			assert.NoError(t, m.ProcessPendingUpdates(context.Background(), nil))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(10), m.GetVersion())
	snap, _ := m.Snapshot(TypeIDOf("Person"))
	assert.Equal(t, 10, snap.Len())
}

func TestManager_PushTimeout(t *testing.T) {
	m := NewManager(Config{PushTimeout: 20 * time.Millisecond})
	writeFields(t, m, "Person", "name")

	err := m.ProcessPendingUpdates(context.Background(), UpdaterFunc(func(ctx context.Context, _ map[TypeID]TypeUpdate) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	assert.ErrorIs(t, err, ErrUpdaterFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(0), m.GetVersion())
}

func TestManager_Bootstrap(t *testing.T) {
	m := NewManager(Config{})
	typeID := TypeIDOf("Person")

	writeFields(t, m, "Person", "age")
	require.NoError(t, m.Bootstrap([]TypeUpdate{{
		TypeID:   typeID,
		TypeName: "Person",
		Fields:   []Field{{ID: FieldIDOf("name"), Name: "name", Type: 1}},
	}}))

	assert.Equal(t, int64(1), m.GetVersion())
	assert.True(t, m.IsUpdatedSince(1), "pending diffs survive a bootstrap")

	snap, ok := m.Snapshot(typeID)
	require.True(t, ok)
	assert.True(t, snap.HasField("name"))

	h := m.GetHandler(typeID)
	_, _ = h.OnFieldWritten("name", 1)
	assert.False(t, h.IsUpdated())

	require.NoError(t, m.ProcessPendingUpdates(context.Background(), nil))
	snap, _ = m.Snapshot(typeID)
	assert.Equal(t, 2, snap.Len())
}

func TestManager_BootstrapConflict(t *testing.T) {
	m := NewManager(Config{})
	err := m.Bootstrap([]TypeUpdate{
		{TypeID: 1, TypeName: "A", Fields: []Field{{ID: 1, Name: "x", Type: 1}}},
		{TypeID: 1, TypeName: "A", Fields: []Field{{ID: 1, Name: "y", Type: 1}}},
	})

	assert.ErrorIs(t, err, ErrConflictingField)
	assert.Equal(t, int64(0), m.GetVersion())
}

func TestManager_LoadFrom(t *testing.T) {
	m := NewManager(Config{})
	loader := LoaderFunc(func(context.Context) ([]TypeUpdate, error) {
		return []TypeUpdate{{TypeID: 7, TypeName: "Seven", Fields: []Field{{ID: 1, Name: "a", Type: 1}}}}, nil
	})

	require.NoError(t, m.LoadFrom(context.Background(), loader))
	snap, ok := m.Snapshot(7)
	require.True(t, ok)
	assert.Equal(t, "Seven", snap.TypeName())

	failing := LoaderFunc(func(context.Context) ([]TypeUpdate, error) {
		return nil, errors.New("boom")
	})
	err := m.LoadFrom(context.Background(), failing)
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, int64(1), m.GetVersion())
}

type recordingSpan struct {
	mu    sync.Mutex
	ended bool
	errs  []error
	attrs map[string]interface{}
}

func (s *recordingSpan) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = true
}

func (s *recordingSpan) SetAttributes(attrs map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attrs == nil {
		s.attrs = map[string]interface{}{}
	}
	for k, v := range attrs {
		s.attrs[k] = v
	}
}

func (s *recordingSpan) RecordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

type recordingTracer struct {
	spans []*recordingSpan
	names []string
}

func (r *recordingTracer) StartSpan(ctx context.Context, name string) (context.Context, tracer.Span) {
	s := &recordingSpan{}
	r.spans = append(r.spans, s)
	r.names = append(r.names, name)
	return ctx, s
}

func (r *recordingTracer) GetCarrier(context.Context) map[string]string { return nil }

func (r *recordingTracer) SetCarrierOnContext(ctx context.Context, _ map[string]string) context.Context {
	return ctx
}

func TestManager_TracesReconciliation(t *testing.T) {
	tr := &recordingTracer{}
	m := NewManager(Config{}).WithTracer(tr)

	writeFields(t, m, "Person", "name")
	require.NoError(t, m.ProcessPendingUpdates(context.Background(), nil))

	writeFields(t, m, "Person", "age")
	err := m.ProcessPendingUpdates(context.Background(), &recordingUpdater{err: errors.New("down")})
	require.Error(t, err)

	require.Len(t, tr.spans, 2)
	assert.Equal(t, "metadata.process_pending_updates", tr.names[0])
	assert.True(t, tr.spans[0].ended)
	assert.Equal(t, 1, tr.spans[0].attrs["metadata.fields"])
	assert.Empty(t, tr.spans[0].errs)
	assert.True(t, tr.spans[1].ended)
	require.Len(t, tr.spans[1].errs, 1)
}
