package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// NewRegistry returns a Prometheus registry with the Go runtime and process
// collectors, for /-/metrics.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

// RegisterQuoteGauges exposes the collection size and the finish time of the
// last sync cycle. lastSync returns the zero time before the first cycle,
// which is reported as 0.
func RegisterQuoteGauges(reg prometheus.Registerer, size func() int, lastSync func() time.Time) error {
	quotes := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "quotekeeper",
		Name:      "quotes",
		Help:      "Number of quotes in the collection.",
	}, func() float64 { return float64(size()) })

	synced := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "quotekeeper",
		Name:      "last_sync_timestamp_seconds",
		Help:      "Unix time the last sync cycle finished.",
	}, func() float64 {
		at := lastSync()
		if at.IsZero() {
			return 0
		}

		return float64(at.Unix())
	})

	return errors.Join(reg.Register(quotes), reg.Register(synced))
}
