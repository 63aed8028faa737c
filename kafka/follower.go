package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/aalemi-dev/portmeta/observability"
	"github.com/aalemi-dev/portmeta/tracer"
	"github.com/segmentio/kafka-go"
)

// Bootstrapper is the part of *metadata.Manager the Follower feeds.
type Bootstrapper interface {
	Bootstrap(updates []metadata.TypeUpdate) error
}

// Follower consumes events published by peers and merges them into a Manager with
// Bootstrap. Events from its own origin are skipped.
//
// An event is committed once it has been applied, or once it is known it can never
// be applied: undecodable events and conflicting definitions are logged and skipped.
type Follower struct {
	cfg      Config
	reader   messageReader
	target   Bootstrapper
	observer observability.Observer
	logger   Logger
	tracer   tracer.Tracer

	wg             sync.WaitGroup
	cancel         context.CancelFunc
	mu             sync.Mutex
	shutdownSignal chan struct{}
	closeOnce      sync.Once
}

// NewFollower creates a Follower reading cfg.Topic as consumer group cfg.GroupID.
func NewFollower(cfg Config, target Bootstrapper) (*Follower, error) {
	cfg = cfg.withDefaults()
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("%w: at least one broker is required", ErrInvalidConfig)
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("%w: group id is required", ErrInvalidConfig)
	}

	dialer, err := newDialer(cfg)
	if err != nil {
		return nil, err
	}
	return newFollowerWithReader(cfg, createReader(cfg, dialer, nil), target), nil
}

// newFollowerWithReader creates a Follower on top of an existing reader.
func newFollowerWithReader(cfg Config, r messageReader, target Bootstrapper) *Follower {
	return &Follower{
		cfg:            cfg.withDefaults(),
		reader:         r,
		target:         target,
		shutdownSignal: make(chan struct{}),
	}
}

// WithObserver attaches an observer to the follower.
func (f *Follower) WithObserver(observer observability.Observer) *Follower {
	f.observer = observer
	return f
}

// WithLogger attaches a logger to the follower.
func (f *Follower) WithLogger(logger Logger) *Follower {
	f.logger = logger
	return f
}

// WithTracer makes the follower continue the publisher's trace for every event.
func (f *Follower) WithTracer(t tracer.Tracer) *Follower {
	f.tracer = t
	return f
}

// Start runs the consume loop in the background until Close is called.
func (f *Follower) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f.cancel = cancel

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		if err := f.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			f.logError(ctx, "Metadata follower stopped", err, nil)
		}
	}()
}

// Run consumes events until ctx is done or the follower is closed.
// It returns ctx.Err() on cancellation and nil after Close.
func (f *Follower) Run(ctx context.Context) error {
	f.logInfo(ctx, "Following metadata events", map[string]interface{}{
		"topic":    f.cfg.Topic,
		"group_id": f.cfg.GroupID,
	})

	for {
		select {
		case <-f.shutdownSignal:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := f.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) || f.isClosed() {
				return nil
			}
			err = TranslateError(err)
			f.logWarn(ctx, "Failed to fetch metadata event", err, nil)
			if IsPermanentError(err) {
				return err
			}
			continue
		}

		f.handle(ctx, msg)

		if err := f.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logWarn(ctx, "Failed to commit metadata event", TranslateError(err), map[string]interface{}{
				"partition": msg.Partition,
				"offset":    msg.Offset,
			})
		}
	}
}

// handle applies one event. It never fails: problems are logged and observed.
func (f *Follower) handle(ctx context.Context, msg kafka.Message) {
	start := time.Now()
	headers := headerMap(msg)
	partition := strconv.Itoa(msg.Partition)

	if f.cfg.Origin != "" && headers[HeaderOrigin] == f.cfg.Origin {
		f.observeOperation("consume", f.cfg.Topic, partition, time.Since(start), nil, int64(len(msg.Value)), map[string]interface{}{
			"skipped": true,
		})
		return
	}

	if f.tracer != nil {
		ctx = f.tracer.SetCarrierOnContext(ctx, headers)
		var span tracer.Span
		ctx, span = f.tracer.StartSpan(ctx, "kafka.apply_event")
		defer span.End()
	}

	event, err := decodeEvent(msg)
	if err == nil {
		err = f.target.Bootstrap([]metadata.TypeUpdate{event.Update()})
	}

	f.observeOperation("consume", f.cfg.Topic, partition, time.Since(start), err, int64(len(msg.Value)), map[string]interface{}{
		"skipped": false,
	})

	if err != nil {
		f.logError(ctx, "Dropped metadata event", err, map[string]interface{}{
			"partition": msg.Partition,
			"offset":    msg.Offset,
			"key":       string(msg.Key),
		})
	}
}

// Close stops the consume loop and closes the reader.
func (f *Follower) Close() error {
	f.closeOnce.Do(func() {
		close(f.shutdownSignal)
	})

	f.mu.Lock()
	cancel := f.cancel
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	f.wg.Wait()

	return f.reader.Close()
}

func (f *Follower) isClosed() bool {
	select {
	case <-f.shutdownSignal:
		return true
	default:
		return false
	}
}

func (f *Follower) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if f.logger != nil {
		f.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (f *Follower) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if f.logger != nil {
		f.logger.WarnWithContext(ctx, msg, err, fields)
	}
}

func (f *Follower) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if f.logger != nil {
		f.logger.ErrorWithContext(ctx, msg, err, fields)
	}
}
