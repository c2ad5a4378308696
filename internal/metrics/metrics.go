package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Filesystem metrics (per volume × operation)
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediascand_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediascand_filesystem_operation_errors_total",
			Help: "Total number of filesystem operation errors",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediascand_filesystem_retry_attempts_total",
			Help: "Total number of NFS stale-handle retry attempts",
		},
		[]string{"retry_op", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediascand_filesystem_retry_success_total",
			Help: "Total number of operations that succeeded after at least one retry",
		},
		[]string{"retry_op", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediascand_filesystem_retry_failures_total",
			Help: "Total number of operations that exhausted all retries",
		},
		[]string{"retry_op", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediascand_filesystem_stale_errors_total",
			Help: "Total number of NFS ESTALE errors observed",
		},
		[]string{"retry_op", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediascand_filesystem_retry_duration_seconds",
			Help:    "Total wall-clock duration of a retried operation, including backoff",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"retry_op", "volume"},
	)
)

// HTTP metrics for the status/health server
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediascand_http_requests_total",
			Help: "Total number of status-server HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediascand_http_request_duration_seconds",
			Help:    "Status-server HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediascand_http_requests_in_flight",
			Help: "Number of status-server HTTP requests currently being processed",
		},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediascand_watcher_events_total",
			Help: "Total number of filesystem vnode events observed, by classification",
		},
		[]string{"event_type"}, // "write", "rename", "delete", "extend"
	)

	WatcherErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediascand_watcher_errors_total",
			Help: "Total number of errors surfaced by the underlying watch facility",
		},
		[]string{"reason"},
	)

	WatcherActiveWatches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediascand_watcher_active_watches",
			Help: "Number of directories currently registered with the watch facility",
		},
	)

	WatcherSlabSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediascand_watcher_slab_size",
			Help: "Current capacity of the watch slab (including free slots)",
		},
	)

	WatcherStaleIdentityTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediascand_watcher_stale_identity_total",
			Help: "Total number of add() calls that found a stale (device, inode) identity and re-registered",
		},
	)

	WatcherTargetedBFSTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediascand_watcher_targeted_bfs_total",
			Help: "Total number of targeted BFS fallback walks triggered by a DirCache refresh failure",
		},
	)
)

// DirCache metrics
var (
	DirCacheRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediascand_dircache_refresh_total",
			Help: "Total number of DirCache.refresh calls, by outcome",
		},
		[]string{"outcome"}, // "unchanged", "changed", "error"
	)

	DirCacheRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediascand_dircache_refresh_duration_seconds",
			Help:    "Duration of a DirCache.refresh call",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	DirCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediascand_dircache_entries",
			Help: "Number of directories currently tracked by DirCache",
		},
	)

	DirCacheSubdirDelta = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediascand_dircache_subdir_delta_total",
			Help: "Total number of subdirectories added or removed across all refreshes",
		},
		[]string{"direction"}, // "added", "removed"
	)

	DirCacheRaceDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediascand_dircache_mtime_race_total",
			Help: "Total number of refreshes where mtime changed during the scan, forcing changed=true",
		},
	)
)

// Scheduler metrics
var (
	SchedulerEnqueueTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediascand_scheduler_enqueue_total",
			Help: "Total number of enqueue calls, by coalescing outcome",
		},
		[]string{"outcome"}, // "new", "extended", "ancestor_absorbed", "descendant_collapsed"
	)

	SchedulerPendingEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediascand_scheduler_pending_entries",
			Help: "Number of pending scan entries currently held by the scheduler",
		},
	)

	SchedulerEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediascand_scheduler_evictions_total",
			Help: "Total number of pending entries evicted due to table capacity pressure",
		},
	)

	SchedulerDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediascand_scheduler_dispatch_total",
			Help: "Total number of scans dispatched, by result",
		},
		[]string{"result"}, // "success", "error"
	)

	SchedulerDispatchLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediascand_scheduler_dispatch_latency_seconds",
			Help:    "Time from first event to dispatch for a pending entry",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
)

// Dispatcher (indexer client) metrics
var (
	DispatcherRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediascand_dispatcher_requests_total",
			Help: "Total number of requests made to the external indexing server",
		},
		[]string{"endpoint", "status"}, // "identity"|"sections"|"refresh", "2xx"|"error"
	)

	DispatcherRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediascand_dispatcher_request_duration_seconds",
			Help:    "Duration of requests to the external indexing server",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	DispatcherConnectivityUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediascand_dispatcher_connectivity_up",
			Help: "Whether the last connectivity check to the indexing server succeeded (1) or not (0)",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mediascand_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
