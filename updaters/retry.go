package updaters

import (
	"context"
	"time"

	"github.com/aalemi-dev/portmeta/metadata"
)

// retryUpdater retries a failed push with exponential backoff.
type retryUpdater struct {
	next   metadata.Updater
	policy RetryPolicy
	logger Logger
}

// WithRetry wraps next so that failed pushes are repeated according to policy.
//
// Retrying stops early when ctx is done or when next reports a permanent error
// (metadata.Permanent, a conflict or a cancelled context); the last error is returned.
// Backends must make repeated pushes of the same fields idempotent.
func WithRetry(next metadata.Updater, policy RetryPolicy) metadata.Updater {
	return &retryUpdater{next: next, policy: policy.normalize()}
}

// WithRetryLogger is WithRetry with a logger that reports every failed attempt.
func WithRetryLogger(next metadata.Updater, policy RetryPolicy, logger Logger) metadata.Updater {
	return &retryUpdater{next: next, policy: policy.normalize(), logger: logger}
}

// Push implements metadata.Updater.
func (r *retryUpdater) Push(ctx context.Context, updates map[metadata.TypeID]metadata.TypeUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := r.next.Push(ctx, updates)
	if err == nil || r.policy.MaxRetries == 0 || metadata.IsPermanentError(err) {
		return err
	}

	delay := r.policy.Initial
	for attempt := 1; attempt <= r.policy.MaxRetries; attempt++ {
		if r.logger != nil {
			r.logger.WarnWithContext(ctx, "Metadata push failed, retrying", err, map[string]interface{}{
				"attempt": attempt,
				"delay":   delay,
			})
		}

		if werr := wait(ctx, delay); werr != nil {
			return err
		}

		err = r.next.Push(ctx, updates)
		if err == nil || metadata.IsPermanentError(err) {
			return err
		}
		delay = nextDelay(delay, r.policy.Multiplier, r.policy.Max)
	}

	if r.logger != nil {
		r.logger.ErrorWithContext(ctx, "Metadata push failed after retries", err, map[string]interface{}{
			"attempts": r.policy.MaxRetries + 1,
		})
	}
	return err
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
