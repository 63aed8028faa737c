package kafka

import (
	"time"

	"github.com/aalemi-dev/portmeta/observability"
)

// observeOperation safely calls the observer if it's not nil.
func (p *Publisher) observeOperation(operation, resource, subResource string, duration time.Duration, err error, size int64) {
	if p.observer != nil {
		p.observer.ObserveOperation(observability.OperationContext{
			Component:   "kafka",
			Operation:   operation,
			Resource:    resource,
			SubResource: subResource,
			Duration:    duration,
			Error:       err,
			Size:        size,
		})
	}
}

// observeOperation safely calls the observer if it's not nil.
func (f *Follower) observeOperation(operation, resource, subResource string, duration time.Duration, err error, size int64, metadata map[string]interface{}) {
	if f.observer != nil {
		f.observer.ObserveOperation(observability.OperationContext{
			Component:   "kafka",
			Operation:   operation,
			Resource:    resource,
			SubResource: subResource,
			Duration:    duration,
			Error:       err,
			Size:        size,
			Metadata:    metadata,
		})
	}
}
