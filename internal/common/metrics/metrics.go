package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 业务与 HTTP 指标集合
type Metrics struct {
	LeasesStarted  prometheus.Counter
	LeasesEnded    prometheus.Counter
	LeaseConflicts *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
}

// New 创建并注册指标；registry 为 nil 时使用默认 registry。
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		LeasesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "leases_started_total",
			Help:      "Total number of leases successfully opened.",
		}),
		LeasesEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "leases_ended_total",
			Help:      "Total number of leases successfully closed.",
		}),
		LeaseConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "lease_conflicts_total",
			Help:      "Lease operations rejected by business rules.",
		}, []string{"reason"}), // car_unavailable / lease_limit / not_active
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crm",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(m.LeasesStarted, m.LeasesEnded, m.LeaseConflicts, m.HTTPDuration)
	return m
}
