package daemon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	derivations    *prometheus.CounterVec
	duration       prometheus.Histogram
	reservedBytes  prometheus.GaugeFunc
	admissionFails prometheus.Counter
	rateLimited    prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, admission *Admission) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		derivations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "keyforge_derivations_total",
			Help: "Derivation requests by chain and outcome.",
		}, []string{"chain", "outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "keyforge_derivation_seconds",
			Help:    "Wall time of completed derivations.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		reservedBytes: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "keyforge_admission_reserved_bytes",
			Help: "Memory budget currently claimed by in-flight derivations.",
		}, func() float64 { return float64(admission.Reserved()) }),
		admissionFails: factory.NewCounter(prometheus.CounterOpts{
			Name: "keyforge_admission_rejects_total",
			Help: "Requests rejected because the memory budget was exhausted.",
		}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "keyforge_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter.",
		}),
	}
}
