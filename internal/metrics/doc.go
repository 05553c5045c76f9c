// Package metrics aggregates token lifecycle statistics.
//
// A [Collector] is handed to the JWT strategy as its observer and records
// every cache hit, every refresh together with its reason, and the latency
// and outcome of each identity endpoint call:
//
//	collector := metrics.NewCollector()
//	strategy, err := auth.NewStrategy(cfg, store, auth.WithObserver(collector))
//
//	// later
//	stats := collector.Stats()
//
// Latency percentiles (P50, P90, P99) come from an HDR histogram with
// microsecond resolution.
package metrics
