package rediscache

import (
	"time"

	"github.com/aalemi-dev/portmeta/observability"
)

// observeOperation notifies the observer about an operation if one is configured.
func (c *Cache) observeOperation(operation, resource, subResource string, duration time.Duration, err error, size int64) {
	if c == nil || c.observer == nil {
		return
	}

	c.observer.ObserveOperation(observability.OperationContext{
		Component:   "rediscache",
		Operation:   operation,
		Resource:    resource,
		SubResource: subResource,
		Duration:    duration,
		Error:       err,
		Size:        size,
	})
}
