package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// VersionSource is the part of the metadata Manager exported as gauges.
type VersionSource interface {
	GetVersion() int64
	PendingCount() int
}

// RegisterManagerGauges exports the published version and the pending diff count of src:
//
//   - <ns>_metadata_version
//   - <ns>_metadata_pending_diffs
func RegisterManagerGauges(reg prometheus.Registerer, namespace string, src VersionSource) error {
	version := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "metadata",
		Name:      "version",
		Help:      "Last published metadata version.",
	}, func() float64 { return float64(src.GetVersion()) })

	pending := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "metadata",
		Name:      "pending_diffs",
		Help:      "Diffs waiting for the next reconciliation.",
	}, func() float64 { return float64(src.PendingCount()) })

	if err := reg.Register(version); err != nil {
		return err
	}
	return reg.Register(pending)
}
