// Package metrics collects monitor lifecycle and HTTP request metrics.
//
// Producers push MetricEvent values into a buffered channel with non-blocking
// sends; a single collector goroutine folds them into an in-memory Metrics
// aggregate and into Prometheus vectors:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.EventChannel() <- metrics.MetricEvent{
//		Type:      metrics.EventMonitorExpired,
//		MonitorID: "dev1",
//	}
//
//	snapshot := collector.Snapshot()
//
// The aggregate is served as JSON by Handler, the Prometheus registry by
// PrometheusHandler. Pending events are drained when the context ends.
package metrics
