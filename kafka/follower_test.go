package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader serves queued messages and then blocks until ctx is done or it is closed.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	fetchErrs []error
	committed []kafka.Message
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{queue: msgs, closed: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case <-r.closed:
		return kafka.Message{}, io.EOF
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.closeOnce.Do(func() { close(r.closed) })
	return nil
}

func (r *fakeReader) Committed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func eventMessage(t *testing.T, e TypeEvent) kafka.Message {
	t.Helper()
	msg, err := encodeEvent(e, EncodingJSON, nil)
	require.NoError(t, err)
	return msg
}

func personEvent(origin string, fields ...metadata.Field) TypeEvent {
	return TypeEvent{
		TypeID:   metadata.TypeIDOf("Person"),
		TypeName: "Person",
		Fields:   fields,
		Origin:   origin,
	}
}

func TestFollower_AppliesPeerEvents(t *testing.T) {
	m := metadata.NewManager(metadata.Config{})
	r := newFakeReader(
		eventMessage(t, personEvent("node-2", metadata.Field{ID: 1, Name: "name", Type: 1})),
		eventMessage(t, personEvent("node-3", metadata.Field{ID: 2, Name: "age", Type: 2})),
	)
	obs := &recordingObserver{}
	f := newFollowerWithReader(Config{Origin: "node-1"}, r, m).WithObserver(obs)

	f.Start(context.Background())
	require.Eventually(t, func() bool { return r.Committed() == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, f.Close())

	snap, ok := m.Snapshot(metadata.TypeIDOf("Person"))
	require.True(t, ok)
	assert.True(t, snap.HasField("name"))
	assert.True(t, snap.HasField("age"))
	assert.Equal(t, int64(2), m.GetVersion())

	ops := obs.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, "consume", ops[0].Operation)
	assert.NoError(t, ops[0].Error)
}

func TestFollower_SkipsOwnEvents(t *testing.T) {
	m := metadata.NewManager(metadata.Config{})
	r := newFakeReader(eventMessage(t, personEvent("node-1", metadata.Field{ID: 1, Name: "name", Type: 1})))
	f := newFollowerWithReader(Config{Origin: "node-1"}, r, m)

	f.Start(context.Background())
	require.Eventually(t, func() bool { return r.Committed() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, f.Close())

	assert.Equal(t, int64(0), m.GetVersion())
	_, ok := m.Snapshot(metadata.TypeIDOf("Person"))
	assert.False(t, ok)
}

func TestFollower_DropsBadEvents(t *testing.T) {
	m := metadata.NewManager(metadata.Config{})
	require.NoError(t, m.Bootstrap([]metadata.TypeUpdate{personEvent("", metadata.Field{ID: 1, Name: "name", Type: 1}).Update()}))

	r := newFakeReader(
		kafka.Message{Value: []byte("not json")},
		eventMessage(t, personEvent("node-2", metadata.Field{ID: 1, Name: "email", Type: 1})),
		eventMessage(t, personEvent("node-2", metadata.Field{ID: 3, Name: "age", Type: 2})),
	)
	f := newFollowerWithReader(Config{}, r, m)

	f.Start(context.Background())
	require.Eventually(t, func() bool { return r.Committed() == 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, f.Close())

	snap, ok := m.Snapshot(metadata.TypeIDOf("Person"))
	require.True(t, ok)
	assert.False(t, snap.HasField("email"), "conflicting event is dropped")
	assert.True(t, snap.HasField("age"), "later events are still applied")
}

func TestFollower_RunStopsOnPermanentFetchError(t *testing.T) {
	r := newFakeReader()
	r.fetchErrs = []error{kafka.LeaderNotAvailable, kafka.TopicAuthorizationFailed}
	f := newFollowerWithReader(Config{}, r, metadata.NewManager(metadata.Config{}))

	err := f.Run(context.Background())
	assert.ErrorIs(t, err, ErrAuthorizationFailed)
}

func TestFollower_RunReturnsContextError(t *testing.T) {
	f := newFollowerWithReader(Config{}, newFakeReader(), metadata.NewManager(metadata.Config{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := f.Run(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestFollower_RunEndsOnClose(t *testing.T) {
	r := newFakeReader()
	f := newFollowerWithReader(Config{}, r, metadata.NewManager(metadata.Config{}))

	done := make(chan error, 1)
	go func() { done <- f.Run(context.Background()) }()

	require.NoError(t, f.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestNewFollower_Validation(t *testing.T) {
	m := metadata.NewManager(metadata.Config{})

	_, err := NewFollower(Config{GroupID: "g"}, m)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewFollower(Config{Brokers: []string{"localhost:9092"}}, m)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestTranslateError(t *testing.T) {
	assert.Nil(t, TranslateError(nil))
	assert.Equal(t, context.Canceled, TranslateError(context.Canceled))

	err := TranslateError(kafka.SASLAuthenticationFailed)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	assert.True(t, IsAuthenticationError(err))
	assert.True(t, IsPermanentError(err))

	err = TranslateError(errors.New("read tcp: i/o timeout"))
	assert.ErrorIs(t, err, ErrRequestTimedOut)
	assert.True(t, IsRetryableError(err))

	plain := errors.New("something else")
	assert.Equal(t, plain, TranslateError(plain))
}
