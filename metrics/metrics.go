// Package metrics exposes Prometheus instrumentation for admission
// decisions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AdmissionMetrics counts admission outcomes per policy class and tracks
// registry churn.
type AdmissionMetrics struct {
	requests *prometheus.CounterVec
	swept    prometheus.Counter
}

// New registers the admission collectors with reg. liveBuckets feeds a
// gauge reporting the registry's current size.
func New(reg prometheus.Registerer, liveBuckets func() float64) *AdmissionMetrics {
	factory := promauto.With(reg)
	m := &AdmissionMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_requests_total",
			Help: "Admission decisions by policy class and outcome.",
		}, []string{"policy", "outcome"}),
		swept: factory.NewCounter(prometheus.CounterOpts{
			Name: "admission_buckets_swept_total",
			Help: "Client buckets removed by staleness sweeps.",
		}),
	}
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "admission_live_buckets",
		Help: "Client buckets currently tracked.",
	}, liveBuckets)
	return m
}

// RecordRequest records one admission decision.
func (m *AdmissionMetrics) RecordRequest(policy string, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "rejected"
	}
	m.requests.WithLabelValues(policy, outcome).Inc()
}

// RecordSwept records buckets removed by a sweep.
func (m *AdmissionMetrics) RecordSwept(removed int) {
	m.swept.Add(float64(removed))
}
