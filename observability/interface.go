package observability

import "time"

// Observer receives a notification for every completed operation of the portmeta
// components (metadata, registry, kafka, store, rediscache, updaters). It keeps those
// packages independent of any particular metrics or tracing implementation.
//
// Observers are optional: every component works without one.
type Observer interface {
	// ObserveOperation is called once an operation completes. Implementations must be
	// safe for concurrent use and should return quickly.
	ObserveOperation(ctx OperationContext)
}

// OperationContext describes one completed operation.
type OperationContext struct {
	// Component identifies the package that performed the operation.
	// Examples: "metadata", "registry", "kafka", "store", "rediscache", "updaters"
	Component string

	// Operation describes what was done.
	// Examples:
	//   metadata:   "process_pending_updates", "bootstrap"
	//   registry:   "push", "load"
	//   kafka:      "produce", "consume"
	//   store:      "push", "load", "migrate"
	//   rediscache: "push", "load"
	Operation string

	// Resource identifies the primary resource operated on, such as a topic, a table,
	// a redis key prefix or "registry" for reconciliation.
	Resource string

	// SubResource provides additional context (optional), such as a published version,
	// a type id or a partition number.
	SubResource string

	// Duration is how long the operation took.
	Duration time.Duration

	// Error is the error returned by the operation, nil on success.
	Error error

	// Size is the amount of data involved (optional): fields pushed, rows written,
	// or message bytes.
	Size int64

	// Metadata carries extra operation-specific information (optional).
	Metadata map[string]interface{}
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx OperationContext)

// ObserveOperation calls f(ctx).
func (f ObserverFunc) ObserveOperation(ctx OperationContext) {
	f(ctx)
}

// Observers fans a notification out to several observers in order.
// Nil entries are skipped.
type Observers []Observer

// ObserveOperation notifies every observer in the slice.
func (o Observers) ObserveOperation(ctx OperationContext) {
	for _, obs := range o {
		if obs != nil {
			obs.ObserveOperation(ctx)
		}
	}
}
