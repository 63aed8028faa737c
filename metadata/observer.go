package metadata

import (
	"context"
	"time"

	"github.com/aalemi-dev/portmeta/observability"
)

// observeOperation notifies the observer about an operation if one is configured.
//
// Notes:
//   - resource: type name for per-type operations, "registry" for reconciliation
//   - subResource: type id or published version
func (m *Manager) observeOperation(operation, resource, subResource string, duration time.Duration, err error, size int64, metadata map[string]interface{}) {
	if m == nil || m.observer == nil {
		return
	}

	m.observer.ObserveOperation(observability.OperationContext{
		Component:   "metadata",
		Operation:   operation,
		Resource:    resource,
		SubResource: subResource,
		Duration:    duration,
		Error:       err,
		Size:        size,
		Metadata:    metadata,
	})
}

// logInfo logs an informational message if a logger is configured
func (m *Manager) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if m.logger != nil {
		m.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

// logWarn logs a warning message if a logger is configured
func (m *Manager) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if m.logger != nil {
		m.logger.WarnWithContext(ctx, msg, err, fields)
	}
}

// logError logs an error message if a logger is configured
func (m *Manager) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if m.logger != nil {
		m.logger.ErrorWithContext(ctx, msg, err, fields)
	}
}
