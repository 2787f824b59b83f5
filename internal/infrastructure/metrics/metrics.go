// Package metrics holds the Prometheus collectors shared by the realtime
// pipeline and the HTTP layer. Collectors register with the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DomainEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewhub_domain_events_total",
		Help: "Domain events emitted on the event bus",
	}, []string{"event"})
	DomainEventHandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewhub_domain_event_handler_errors_total",
		Help: "Domain event handlers that returned an error or panicked",
	}, []string{"event"})
	MalformedDomainEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewhub_domain_events_malformed_total",
		Help: "Domain events dropped by the gateway because the payload failed validation",
	}, []string{"event"})

	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reviewhub_realtime_active_subscriptions",
		Help: "The number of live realtime subscriptions",
	})
	ActiveStreams = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reviewhub_realtime_active_streams",
		Help: "The number of open realtime transport connections",
	}, []string{"transport"})
	RealtimeEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewhub_realtime_events_emitted_total",
		Help: "Realtime events accepted by the broadcaster",
	}, []string{"type"})
	RealtimeDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reviewhub_realtime_events_delivered_total",
		Help: "Realtime events queued to a matching subscription",
	})
	RealtimeDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewhub_realtime_events_dropped_total",
		Help: "Realtime events dropped for slow subscribers",
	}, []string{"reason"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewhub_http_requests_total",
		Help: "HTTP requests by route and status",
	}, []string{"method", "route", "status"})
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reviewhub_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)
