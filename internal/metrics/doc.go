// Package metrics provides Prometheus instrumentation for the mediascand daemon.
//
// This package defines and exposes various metrics that can be scraped by Prometheus
// to monitor the health, performance, and behavior of the daemon. All metrics
// are prefixed with "mediascand_" to avoid naming collisions with other applications.
//
// # Metric Categories
//
// ## HTTP Metrics
//
// Track status-server request performance:
//   - HTTPRequestsTotal: Counter of total requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Filesystem Metrics
//
// Monitor NFS retry behavior and raw filesystem call latency:
//   - FilesystemOperationDuration, FilesystemOperationErrors: per volume × operation
//   - FilesystemRetryAttempts, FilesystemRetrySuccess, FilesystemRetryFailures,
//     FilesystemStaleErrors, FilesystemRetryDuration: per retry-operation × volume
//
// ## Watcher Metrics
//
// Track the kernel-event watch set:
//   - WatcherEventsTotal: Counter of vnode events by classification
//   - WatcherErrorsTotal: Counter of watch-facility errors
//   - WatcherActiveWatches: Gauge of currently registered watches
//   - WatcherSlabSize: Gauge of watch slab capacity
//   - WatcherStaleIdentityTotal: Counter of stale (device, inode) re-registrations
//   - WatcherTargetedBFSTotal: Counter of targeted BFS fallback walks
//
// ## DirCache Metrics
//
// Track directory-structure cache refreshes:
//   - DirCacheRefreshTotal: Counter of refreshes by outcome
//   - DirCacheRefreshDuration: Histogram of refresh duration
//   - DirCacheEntries: Gauge of tracked directories
//   - DirCacheSubdirDelta: Counter of added/removed subdirectories
//   - DirCacheRaceDetected: Counter of mtime races during scan
//
// ## Scheduler Metrics
//
// Track pending-scan coalescing and dispatch:
//   - SchedulerEnqueueTotal: Counter of enqueue calls by coalescing outcome
//   - SchedulerPendingEntries: Gauge of pending scan entries
//   - SchedulerEvictionsTotal: Counter of capacity evictions
//   - SchedulerDispatchTotal: Counter of dispatches by result
//   - SchedulerDispatchLatency: Histogram of first-event-to-dispatch latency
//
// ## Dispatcher Metrics
//
// Track calls to the external indexing server:
//   - DispatcherRequestsTotal: Counter of requests by endpoint and status
//   - DispatcherRequestDuration: Histogram of request duration by endpoint
//   - DispatcherConnectivityUp: Gauge of last connectivity check result
//
// ## Application Info
//
// Expose build information:
//   - AppInfo: Gauge with version, commit, and Go version labels
//
// # Usage
//
// Metrics are automatically registered with the default Prometheus registry
// using promauto. To expose them, mount the promhttp.Handler() on your
// metrics endpoint:
//
//	import "github.com/prometheus/client_golang/prometheus/promhttp"
//
//	mux.Handle("/metrics", promhttp.Handler())
//
// # Recording Metrics
//
// To record metrics from other packages, import this package and use the
// exported metric variables:
//
//	import "mediascand/internal/metrics"
//
//	metrics.WatcherEventsTotal.WithLabelValues("write").Inc()
//	metrics.DirCacheRefreshDuration.Observe(0.004)
//
// # Collector
//
// The package provides a [Collector] type that periodically gathers a
// [Stats] snapshot from a [StatsProvider] (typically the control loop) and
// updates the corresponding gauges:
//
//	collector := metrics.NewCollector(controlLoop, 10*time.Second)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Dispatch error rate:
//
//	sum(rate(mediascand_scheduler_dispatch_total{result="error"}[5m])) /
//	sum(rate(mediascand_scheduler_dispatch_total[5m]))
//
// P95 dispatch latency:
//
//	histogram_quantile(0.95, sum(rate(mediascand_scheduler_dispatch_latency_seconds_bucket[5m])) by (le))
//
// NFS retry success rate:
//
//	sum(rate(mediascand_filesystem_retry_success_total[5m])) /
//	sum(rate(mediascand_filesystem_retry_attempts_total[5m]))
package metrics
