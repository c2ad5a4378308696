package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- Filesystem operation metrics (per volume × operation) ---
	volumes := []string{"media", "unknown"}
	fsOps := []string{"read", "write", "stat", "readdir"}

	for _, vol := range volumes {
		for _, op := range fsOps {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
		}
	}

	// --- Filesystem retry metrics (per retry-operation × volume) ---
	retryOps := []string{"stat", "open", "readdir"}

	for _, op := range retryOps {
		for _, vol := range volumes {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	// --- Watcher event classification ---
	for _, evt := range []string{"write", "rename", "delete", "extend"} {
		WatcherEventsTotal.WithLabelValues(evt)
	}

	// --- DirCache refresh outcomes ---
	for _, outcome := range []string{"unchanged", "changed", "error"} {
		DirCacheRefreshTotal.WithLabelValues(outcome)
	}
	for _, dir := range []string{"added", "removed"} {
		DirCacheSubdirDelta.WithLabelValues(dir)
	}

	// --- Scheduler enqueue outcomes and dispatch results ---
	for _, outcome := range []string{"new", "extended", "ancestor_absorbed", "descendant_collapsed"} {
		SchedulerEnqueueTotal.WithLabelValues(outcome)
	}
	for _, result := range []string{"success", "error"} {
		SchedulerDispatchTotal.WithLabelValues(result)
	}

	// --- Dispatcher endpoints ---
	for _, endpoint := range []string{"identity", "sections", "refresh"} {
		DispatcherRequestDuration.WithLabelValues(endpoint)
		for _, status := range []string{"2xx", "error"} {
			DispatcherRequestsTotal.WithLabelValues(endpoint, status)
		}
	}
}
