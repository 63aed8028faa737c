package minio

import (
	"time"

	"github.com/aalemi-dev/portmeta/observability"
)

// observeOperation notifies the observer about an operation if one is configured.
//
// Parameters:
//   - operation: The type of operation being performed ("push", "load")
//   - bucket: The bucket name (used as resource)
//   - objectKey: The object key or prefix (used as subResource)
//   - duration: How long the operation took
//   - err: Any error that occurred during the operation
//   - size: The number of fields pushed or types loaded
//   - metadata: Additional metadata about the operation
func (a *Archive) observeOperation(operation, bucket, objectKey string, duration time.Duration, err error, size int64, metadata map[string]interface{}) {
	if a == nil || a.observer == nil {
		return
	}

	a.observer.ObserveOperation(observability.OperationContext{
		Component:   "minio",
		Operation:   operation,
		Resource:    bucket,
		SubResource: objectKey,
		Duration:    duration,
		Error:       err,
		Size:        size,
		Metadata:    metadata,
	})
}
