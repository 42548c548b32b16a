// Package metrics collects health panel activity.
//
// It uses a channel-based event pipeline to asynchronously record:
//   - Refreshes started and completed, by outcome
//   - Fetch durations with percentile calculations (P50, P95, P99)
//   - HTTP status code distribution of the health endpoint
//   - Clipboard copies and their failures
//   - The last observed overall health
//
// The collector runs in a dedicated goroutine. Producers send events with
// non-blocking semantics so a slow consumer never stalls a refresh.
//
// Example usage:
//
//	collector := metrics.NewCollector(256, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventRefreshCompleted,
//		Target:     "http://localhost:8000/healthz/",
//		Duration:   150 * time.Millisecond,
//		StatusCode: 200,
//		Outcome:    "healthy",
//		Healthy:    true,
//	})
//
//	snapshot := collector.Snapshot()
//
// Every event is mirrored into a private Prometheus registry served by
// PrometheusHandler. Pending events are drained on shutdown.
package metrics
