package transport

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts Transport calls by outcome. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evacconsole",
			Subsystem: "transport",
			Name:      "requests_total",
			Help:      "Upstream API calls by method and outcome.",
		}, []string{"method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "evacconsole",
			Subsystem: "transport",
			Name:      "request_duration_seconds",
			Help:      "Upstream API call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *Metrics) observe(method string, res Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if kind := res.Kind(); kind != KindNone {
		outcome = string(kind)
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}
