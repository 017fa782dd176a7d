package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapsight_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapsight_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapsight_analyses_total",
			Help: "Total number of analysis requests by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	QuotaDenialsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snapsight_quota_denials_total",
			Help: "Total number of requests denied by the daily quota.",
		},
	)

	QuotaRefundsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snapsight_quota_refunds_total",
			Help: "Total number of quota units refunded after analysis failures.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AnalysesTotal,
		QuotaDenialsTotal,
		QuotaRefundsTotal,
	)
}
