package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame cache metrics
var (
	FrameCacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "frame_viewer_cache_bytes",
			Help: "Bytes held by rendered frames in the frame cache",
		},
	)

	FrameCacheBudgetBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "frame_viewer_cache_budget_bytes",
			Help: "Configured byte budget of the frame cache",
		},
	)

	FrameCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "frame_viewer_cache_entries",
			Help: "Number of rendered frames in the frame cache",
		},
	)

	FrameCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frame_viewer_cache_lookups_total",
			Help: "Frame cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss"
	)

	FrameCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "frame_viewer_cache_evictions_total",
			Help: "Total number of frames evicted to honor the byte budget",
		},
	)

	FrameCacheOverages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "frame_viewer_cache_overages_total",
			Help: "Times a single frame alone exceeded the byte budget and was kept",
		},
	)
)

// Pipeline metrics
var (
	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "frame_viewer_pipeline_stage_duration_seconds",
			Help:    "Duration of a pipeline stage in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"stage"}, // "decode", "resize", "color", "warp"
	)

	PipelineStageCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frame_viewer_pipeline_stage_cache_total",
			Help: "Stage cache lookups by stage and result",
		},
		[]string{"stage", "result"},
	)
)

// Preload worker metrics
var (
	WorkerEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frame_viewer_worker_evaluations_total",
			Help: "Frame evaluations by outcome",
		},
		[]string{"status"}, // "ready", "canceled", "failed"
	)

	WorkerEvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "frame_viewer_worker_evaluation_duration_seconds",
			Help:    "Duration of completed frame evaluations in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	WorkerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frame_viewer_worker_requests_total",
			Help: "Frame requests by disposition",
		},
		[]string{"disposition"}, // "cached", "queued", "superseded", "ignored"
	)

	WorkerBusy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "frame_viewer_worker_busy",
			Help: "Whether the preload worker is evaluating a frame (1 = evaluating, 0 = idle)",
		},
	)
)

// LUT metrics
var (
	LUTLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frame_viewer_lut_loads_total",
			Help: "LUT loads by result",
		},
		[]string{"status"}, // "parsed", "cached", "error"
	)

	LUTParseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "frame_viewer_lut_parse_duration_seconds",
			Help:    "Time spent parsing .cube files in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)
)

// Playback metrics
var (
	PlaybackTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frame_viewer_playback_ticks_total",
			Help: "Playback clock ticks by result",
		},
		[]string{"result"}, // "advanced", "stalled"
	)

	PlaybackFrame = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "frame_viewer_playback_frame",
			Help: "Frame index currently shown by the playback clock",
		},
	)
)

// Export metrics
var (
	ExportFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frame_viewer_export_frames_total",
			Help: "Frames written by the exporter",
		},
		[]string{"format"},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "frame_viewer_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frame_viewer_filesystem_operation_errors_total",
			Help: "Filesystem operations that returned an error",
		},
		[]string{"operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frame_viewer_filesystem_retry_attempts_total",
			Help: "Retries triggered by NFS stale file handles",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frame_viewer_filesystem_retry_failures_total",
			Help: "Operations that still failed after all retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frame_viewer_filesystem_stale_errors_total",
			Help: "ESTALE errors observed",
		},
		[]string{"operation"},
	)
)

// HTTP metrics for the status endpoint
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frame_viewer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "frame_viewer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "frame_viewer_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "frame_viewer_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)
