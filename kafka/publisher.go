package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/aalemi-dev/portmeta/observability"
	"github.com/aalemi-dev/portmeta/tracer"
	"github.com/segmentio/kafka-go"
)

// Publisher implements metadata.Updater by writing one TypeEvent per updated type to
// the configured topic. All events of a push are written in a single batch.
type Publisher struct {
	cfg      Config
	writer   messageWriter
	observer observability.Observer
	logger   Logger
	tracer   tracer.Tracer

	// now is replaced in tests
	now func() time.Time

	mu     sync.RWMutex
	closed bool
}

// NewPublisher creates a Publisher writing to cfg.Topic.
//
// Example:
//
//	pub, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}})
//	if err != nil {
//	    return err
//	}
//	defer pub.Close()
//	err = manager.ProcessPendingUpdates(ctx, pub)
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg = cfg.withDefaults()
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("%w: at least one broker is required", ErrInvalidConfig)
	}
	if cfg.Encoding != EncodingJSON && cfg.Encoding != EncodingAvro {
		return nil, fmt.Errorf("%w: unsupported encoding %q", ErrInvalidConfig, cfg.Encoding)
	}

	dialer, err := newDialer(cfg)
	if err != nil {
		return nil, err
	}

	p := &Publisher{cfg: cfg, now: time.Now}
	w, err := createWriter(cfg, dialer, nil)
	if err != nil {
		return nil, err
	}
	p.writer = w
	return p, nil
}

// newPublisherWithWriter creates a Publisher on top of an existing writer.
func newPublisherWithWriter(cfg Config, w messageWriter) *Publisher {
	return &Publisher{cfg: cfg.withDefaults(), writer: w, now: time.Now}
}

// WithObserver attaches an observer to the publisher.
func (p *Publisher) WithObserver(observer observability.Observer) *Publisher {
	p.observer = observer
	return p
}

// WithLogger attaches a logger to the publisher. kafka-go internal errors are
// reported through it as well.
func (p *Publisher) WithLogger(logger Logger) *Publisher {
	p.logger = logger
	if w, ok := p.writer.(*kafka.Writer); ok {
		w.ErrorLogger = createErrorLogger(logger)
	}
	return p
}

// WithTracer makes the publisher attach trace context to every event.
func (p *Publisher) WithTracer(t tracer.Tracer) *Publisher {
	p.tracer = t
	return p
}

// Push publishes updates. Types are written in ascending id order. Broker errors are
// translated with TranslateError; permanent ones are wrapped with metadata.Permanent.
func (p *Publisher) Push(ctx context.Context, updates map[metadata.TypeID]metadata.TypeUpdate) (err error) {
	start := time.Now()
	var size int64
	defer func() {
		p.observeOperation("produce", p.cfg.Topic, "", time.Since(start), err, size)
	}()

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return metadata.Permanent(ErrClosed)
	}
	if len(updates) == 0 {
		return nil
	}

	var headers map[string]string
	if p.tracer != nil {
		headers = p.tracer.GetCarrier(ctx)
	}

	ids := make([]metadata.TypeID, 0, len(updates))
	for id := range updates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	now := p.now().UTC()
	msgs := make([]kafka.Message, 0, len(ids))
	for _, id := range ids {
		u := updates[id]
		msg, err := encodeEvent(TypeEvent{
			TypeID:      u.TypeID,
			TypeName:    u.TypeName,
			Fields:      u.Fields,
			Origin:      p.cfg.Origin,
			PublishedAt: now,
		}, p.cfg.Encoding, headers)
		if err != nil {
			return metadata.Permanent(err)
		}
		size += int64(len(msg.Value))
		msgs = append(msgs, msg)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		err = TranslateError(firstWriteError(err))
		if IsPermanentError(err) {
			p.logError(ctx, "Failed to publish metadata events", err, len(msgs))
			return metadata.Permanent(err)
		}
		p.logWarn(ctx, "Failed to publish metadata events", err, len(msgs))
		return err
	}
	return nil
}

// Close flushes pending writes and closes the writer. Push fails after Close.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

// firstWriteError unpacks the per-message errors of a batch write.
func firstWriteError(err error) error {
	var werrs kafka.WriteErrors
	if errors.As(err, &werrs) {
		for _, e := range werrs {
			if e != nil {
				return e
			}
		}
	}
	return err
}

func (p *Publisher) logWarn(ctx context.Context, msg string, err error, events int) {
	if p.logger != nil {
		p.logger.WarnWithContext(ctx, msg, err, map[string]interface{}{
			"topic":  p.cfg.Topic,
			"events": events,
		})
	}
}

func (p *Publisher) logError(ctx context.Context, msg string, err error, events int) {
	if p.logger != nil {
		p.logger.ErrorWithContext(ctx, msg, err, map[string]interface{}{
			"topic":  p.cfg.Topic,
			"events": events,
		})
	}
}
