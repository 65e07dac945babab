package main

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/angeloszaimis/heartbeat-monitor/internal/handler"
	"github.com/angeloszaimis/heartbeat-monitor/internal/metrics"
)

// setupRouter mounts the API at the root and, when basePath is set, again
// under that prefix.
func setupRouter(monitorHandler *handler.MonitorHandler, metricsCollector *metrics.Collector, basePath string) *mux.Router {
	r := mux.NewRouter()
	r.Use(monitorHandler.Instrument)

	if metricsCollector != nil {
		r.Handle("/metrics", metricsCollector.PrometheusHandler()).Methods(http.MethodGet)
		r.HandleFunc("/metrics/summary", metricsCollector.Handler()).Methods(http.MethodGet)
	}

	monitorHandler.Register(r)

	if basePath != "" {
		monitorHandler.Register(r.PathPrefix(basePath).Subrouter())
	}

	return r
}
