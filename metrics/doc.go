// Package metrics exposes portmeta's Prometheus metrics.
//
// Two registries are kept apart: system metrics (Go runtime, process, build info) and
// application metrics. The application registry receives the per-operation metrics of
// OperationObserver, which implements observability.Observer and can be handed to every
// component, and the manager gauges of RegisterManagerGauges.
//
//	m := metrics.NewMetrics(metrics.Config{ServiceName: "portmeta"})
//	obs, err := metrics.NewOperationObserver(m.Registerer(), m.Namespace())
//	if err != nil {
//	    return err
//	}
//	mgr := metadata.NewManager(cfg).WithObserver(obs)
//	if err := metrics.RegisterManagerGauges(m.Registerer(), m.Namespace(), mgr); err != nil {
//	    return err
//	}
package metrics
