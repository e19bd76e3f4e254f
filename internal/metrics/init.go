package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, result := range []string{"hit", "miss"} {
		FrameCacheLookups.WithLabelValues(result)
	}

	for _, stage := range []string{"decode", "resize", "color", "warp"} {
		PipelineStageDuration.WithLabelValues(stage)
		PipelineStageCache.WithLabelValues(stage, "hit")
		PipelineStageCache.WithLabelValues(stage, "miss")
	}

	for _, status := range []string{"ready", "canceled", "failed"} {
		WorkerEvaluationsTotal.WithLabelValues(status)
	}
	for _, d := range []string{"cached", "queued", "superseded", "ignored"} {
		WorkerRequestsTotal.WithLabelValues(d)
	}

	for _, status := range []string{"parsed", "cached", "error"} {
		LUTLoadsTotal.WithLabelValues(status)
	}

	for _, result := range []string{"advanced", "stalled"} {
		PlaybackTicksTotal.WithLabelValues(result)
	}

	for _, op := range []string{"stat", "open", "readdir"} {
		FilesystemOperationDuration.WithLabelValues(op)
		FilesystemOperationErrors.WithLabelValues(op)
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}
}
