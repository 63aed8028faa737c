package store

import (
	"time"

	"github.com/aalemi-dev/portmeta/observability"
)

// observeOperation notifies the observer about an operation if one is configured.
func (s *Store) observeOperation(operation, resource, subResource string, duration time.Duration, err error, size int64) {
	if s == nil || s.observer == nil {
		return
	}

	s.observer.ObserveOperation(observability.OperationContext{
		Component:   "store",
		Operation:   operation,
		Resource:    resource,
		SubResource: subResource,
		Duration:    duration,
		Error:       err,
		Size:        size,
		Metadata: map[string]interface{}{
			"driver": s.cfg.Driver,
		},
	})
}
