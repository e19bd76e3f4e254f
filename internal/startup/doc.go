// Package startup handles configuration loading and startup/shutdown
// logging.
//
// # Configuration
//
// [LoadConfig] resolves settings through viper: defaults, then an optional
// config file (YAML, TOML or JSON, chosen by extension), then environment
// variables, then command-line flags bound to the same keys.
//
//   - CACHE_BUDGET: Frame cache byte budget, e.g. 3000MiB or 2GB (default: 3000MiB)
//   - LUT_CACHE_BUDGET: Byte budget for parsed LUT grids (default: 256MiB)
//   - RESOLUTION_TIER: full, half or quarter (default: full)
//   - FPS: Playback rate override; 0 uses the source rate
//   - LUT_PATH: .cube file applied to every frame
//   - LUT_ENABLED: Apply LUT_PATH (default: true)
//   - IN_POINT, OUT_POINT: Playback range; both 0 means the whole source
//   - METRICS_ADDR: Listen address of the status endpoint, empty disables it
//   - VIPS_ENABLED: Initialize libvips as a still-image fallback (default: true)
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT: see package memory
//
// When GOMEMLIMIT is known the cache budget is capped to a share of it.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
// [PrintBanner], [LogSystemInfo], [LogConfig], [LogDecoderInit],
// [LogSessionOpened], [LogHTTPRoutes], [LogServerStarted] and the shutdown
// helpers print the sectioned startup log.
package startup
