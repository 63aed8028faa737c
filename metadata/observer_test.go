package metadata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aalemi-dev/portmeta/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestObserver is a mock observer for testing.
type TestObserver struct {
	mu         sync.Mutex
	operations []observability.OperationContext
}

func (t *TestObserver) ObserveOperation(ctx observability.OperationContext) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.operations = append(t.operations, ctx)
}

func (t *TestObserver) GetOperations() []observability.OperationContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]observability.OperationContext, len(t.operations))
	copy(out, t.operations)
	return out
}

type logEntry struct {
	level string
	msg   string
	err   error
}

type testLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *testLogger) add(level, msg string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, err: err})
}

func (l *testLogger) InfoWithContext(_ context.Context, msg string, err error, _ ...map[string]interface{}) {
	l.add("info", msg, err)
}

func (l *testLogger) WarnWithContext(_ context.Context, msg string, err error, _ ...map[string]interface{}) {
	l.add("warn", msg, err)
}

func (l *testLogger) ErrorWithContext(_ context.Context, msg string, err error, _ ...map[string]interface{}) {
	l.add("error", msg, err)
}

func (l *testLogger) levels() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.level)
	}
	return out
}

func TestObserveOperationNilObserverNoPanic(t *testing.T) {
	m := NewManager(Config{})
	assert.NotPanics(t, func() {
		m.observeOperation("process_pending_updates", "registry", "1", time.Millisecond, nil, 0, nil)
	})

	var nilManager *Manager
	assert.NotPanics(t, func() {
		nilManager.observeOperation("bootstrap", "registry", "", 0, nil, 0, nil)
	})
}

func TestManager_ObservesReconciliation(t *testing.T) {
	obs := &TestObserver{}
	m := NewManager(Config{}).WithObserver(obs)

	writeFields(t, m, "Person", "name", "age")
	require.NoError(t, m.ProcessPendingUpdates(context.Background(), nil))

	ops := obs.GetOperations()
	require.Len(t, ops, 1)
	assert.Equal(t, "metadata", ops[0].Component)
	assert.Equal(t, "process_pending_updates", ops[0].Operation)
	assert.Equal(t, "registry", ops[0].Resource)
	assert.Equal(t, "1", ops[0].SubResource)
	assert.Equal(t, int64(2), ops[0].Size)
	assert.NoError(t, ops[0].Error)
	assert.Equal(t, 1, ops[0].Metadata["diffs"])
}

func TestManager_ObservesFailure(t *testing.T) {
	obs := &TestObserver{}
	m := NewManager(Config{}).WithObserver(obs)

	writeFields(t, m, "Person", "name")
	err := m.ProcessPendingUpdates(context.Background(), &recordingUpdater{err: errors.New("down")})
	require.Error(t, err)

	ops := obs.GetOperations()
	require.Len(t, ops, 1)
	assert.Equal(t, "0", ops[0].SubResource)
	assert.ErrorIs(t, ops[0].Error, ErrUpdaterFailed)
}

func TestManager_Logging(t *testing.T) {
	lg := &testLogger{}
	m := NewManager(Config{}).WithLogger(lg)

	writeFields(t, m, "Person", "name")
	require.NoError(t, m.ProcessPendingUpdates(context.Background(), nil))

	writeFields(t, m, "Person", "age")
	err := m.ProcessPendingUpdates(context.Background(), &recordingUpdater{err: errors.New("down")})
	var ue *UpdateError
	require.ErrorAs(t, err, &ue)
	m.Requeue(ue.Diffs...)

	assert.Equal(t, []string{"info", "warn", "info"}, lg.levels())
}
