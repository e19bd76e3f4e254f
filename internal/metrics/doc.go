// Package metrics provides Prometheus instrumentation for the frame viewer.
//
// All metrics are prefixed with "frame_viewer_" and registered on the
// default registry through promauto, so importing the package is enough to
// have them exported by promhttp.Handler.
//
// # Metric Categories
//
// ## Frame Cache Metrics
//
//   - FrameCacheBytes / FrameCacheBudgetBytes / FrameCacheEntries: gauges
//     sampled by the Collector from the session stats
//   - FrameCacheLookups: counter of lookups by result (hit, miss)
//   - FrameCacheEvictions: counter of frames evicted to honor the budget
//   - FrameCacheOverages: counter of single oversized frames kept in place
//
// ## Pipeline Metrics
//
//   - PipelineStageDuration: histogram per stage (decode, resize, color, warp)
//   - PipelineStageCache: stage cache lookups by stage and result
//
// ## Preload Worker Metrics
//
//   - WorkerEvaluationsTotal: evaluations by outcome (ready, canceled, failed)
//   - WorkerEvaluationDuration: histogram of completed evaluations
//   - WorkerRequestsTotal: requests by disposition
//   - WorkerBusy: 1 while a frame is being evaluated
//
// ## LUT, Playback and Export Metrics
//
//   - LUTLoadsTotal, LUTParseDuration
//   - PlaybackTicksTotal (advanced, stalled), PlaybackFrame
//   - ExportFramesTotal by output format
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight: recorded
//     by the middleware package for the status endpoint
//
// ## Filesystem Metrics
//
// Recorded through the filesystem.Observer adapter returned by
// NewFilesystemObserver; see the filesystem package for the retry policy.
//
// # Usage
//
//	metrics.InitializeMetrics()
//	filesystem.SetObserver(metrics.NewFilesystemObserver())
//
//	collector := metrics.NewCollector(session, 5*time.Second)
//	collector.Start()
//	defer collector.Stop()
package metrics
