package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	namespace = "heartbeat_monitor"

	typeLabel   = "type"
	routeLabel  = "route"
	methodLabel = "method"
	codeLabel   = "code"
	statusLabel = "status"
)

type promVectors struct {
	registry        *prometheus.Registry
	events          *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	monitors        *prometheus.GaugeVec
}

func newPromVectors() *promVectors {
	v := &promVectors{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Monitor lifecycle events by type",
			},
			[]string{typeLabel},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route, method and status code",
			},
			[]string{routeLabel, methodLabel, codeLabel},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{routeLabel},
		),
		monitors: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "monitors",
				Help:      "Registered monitors by status",
			},
			[]string{statusLabel},
		),
	}

	v.registry.MustRegister(
		v.events,
		v.requests,
		v.requestDuration,
		v.monitors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return v
}

func (v *promVectors) observe(event MetricEvent) {
	if event.Type == EventRequestCompleted {
		v.requests.WithLabelValues(event.Route, event.Method, strconv.Itoa(event.StatusCode)).Inc()
		v.requestDuration.WithLabelValues(event.Route).Observe(event.Duration.Seconds())
		return
	}

	v.events.WithLabelValues(string(event.Type)).Inc()
}

func (v *promVectors) setMonitors(counts map[string]int) {
	for status, n := range counts {
		v.monitors.WithLabelValues(status).Set(float64(n))
	}
}
