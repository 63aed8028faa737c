package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aalemi-dev/portmeta/logger"
	"github.com/aalemi-dev/portmeta/metadata"
	"go.uber.org/fx"
)

// reconciler drains the pending metadata of a Manager into an Updater on a timer.
type reconciler struct {
	manager  *metadata.Manager
	updater  metadata.Updater
	interval time.Duration
	logger   logger.Logger
}

func newReconciler(m *metadata.Manager, u metadata.Updater, interval time.Duration, l logger.Logger) *reconciler {
	if interval <= 0 {
		interval = metadata.DefaultReconcileInterval
	}
	return &reconciler{manager: m, updater: u, interval: interval, logger: l}
}

// run reconciles every interval until ctx is done.
func (r *reconciler) run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// reconcile runs one reconciliation when something is pending. Diffs of a failed push
// go back to the queue when the failure is transient and are dropped otherwise. On a
// conflict only the diff that caused it is dropped.
func (r *reconciler) reconcile(ctx context.Context) {
	if r.manager.PendingCount() == 0 {
		return
	}

	err := r.manager.ProcessPendingUpdates(ctx, r.updater)
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		var ue *metadata.UpdateError
		if errors.As(err, &ue) {
			r.manager.Requeue(ue.Diffs...)
		}
		return
	}

	var ue *metadata.UpdateError
	if metadata.IsRetryableError(err) && errors.As(err, &ue) {
		r.manager.Requeue(ue.Diffs...)
		r.logger.WarnWithContext(ctx, "Metadata reconciliation failed, diffs requeued", err, map[string]interface{}{
			"diffs":   len(ue.Diffs),
			"version": r.manager.GetVersion(),
		})
		return
	}

	var ce *metadata.ConflictError
	if errors.As(err, &ce) {
		remaining := ce.Remaining()
		r.manager.Requeue(remaining...)
		r.logger.ErrorWithContext(ctx, "Metadata reconciliation conflict, diff dropped", err, map[string]interface{}{
			"version":        r.manager.GetVersion(),
			"type_id":        ce.TypeID,
			"dropped_fields": len(ce.Rejected.Fields),
			"requeued":       len(remaining),
		})
		return
	}

	fields := map[string]interface{}{"version": r.manager.GetVersion()}
	if errors.As(err, &ue) {
		fields["diffs"] = len(ue.Diffs)
	}
	r.logger.ErrorWithContext(ctx, "Metadata reconciliation failed permanently, diffs dropped", err, fields)
}

type reconcilerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    metadata.Config
	Manager   *metadata.Manager
	Updater   metadata.Updater `optional:"true"`
	Logger    logger.Logger
}

// registerReconciler runs the reconciler between start and stop. The final flush on
// stop is left to the metadata module.
func registerReconciler(params reconcilerParams) {
	r := newReconciler(params.Manager, params.Updater, params.Config.ReconcileInterval, params.Logger)

	var (
		wg     sync.WaitGroup
		cancel context.CancelFunc
	)
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var runCtx context.Context
			runCtx, cancel = context.WithCancel(context.WithoutCancel(ctx))
			wg.Add(1)
			go func() {
				defer wg.Done()
				r.run(runCtx)
			}()
			params.Logger.InfoWithContext(ctx, "Metadata reconciler started", nil, map[string]interface{}{
				"interval": r.interval.String(),
				"updater":  params.Updater != nil,
			})
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			wg.Wait()
			return nil
		},
	})
}
