// Package observability defines the Observer interface through which the portmeta
// components report completed operations.
//
// Components call the observer, when one is configured, after each operation:
//
//	func (p *Publisher) observeOperation(operation string, duration time.Duration, err error, size int64) {
//	    if p.observer == nil {
//	        return
//	    }
//	    p.observer.ObserveOperation(observability.OperationContext{
//	        Component: "kafka",
//	        Operation: operation,
//	        Resource:  p.cfg.Topic,
//	        Duration:  duration,
//	        Error:     err,
//	        Size:      size,
//	    })
//	}
//
// Applications implement Observer to turn these events into metrics, logs or traces.
// The metrics package ships a Prometheus-backed implementation; several observers can
// be combined with Observers:
//
//	obs := observability.Observers{metricsObserver, auditObserver}
//	mgr := metadata.NewManager(cfg).WithObserver(obs)
//
// Observers must be safe for concurrent use and should not block: they run on the
// caller's goroutine, in the case of the metadata Manager while reconciliation is in
// progress.
package observability
