// Package metrics holds the prometheus collectors of the storefront.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Metrics struct {
	Registry *prometheus.Registry

	RequestCounter *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
	MergeTotal     *prometheus.CounterVec
	MergedLines    prometheus.Counter
	AuthEvents     *prometheus.CounterVec
	OrdersPlaced   prometheus.Counter
}

// New registers every collector on a fresh registry together with the Go
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storefront_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		MergeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_session_merges_total",
				Help: "Session merges by outcome",
			},
			[]string{"outcome"},
		),
		MergedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_session_merged_lines_total",
			Help: "Cart lines and wishlist entries folded into accounts",
		}),
		AuthEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_auth_events_total",
				Help: "Authentication events by kind and outcome",
			},
			[]string{"event", "outcome"},
		),
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Orders placed at checkout",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestCounter,
		m.RequestLatency,
		m.MergeTotal,
		m.MergedLines,
		m.AuthEvents,
		m.OrdersPlaced,
	)
	return m
}
