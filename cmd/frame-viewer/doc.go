// Package main documents the frame-viewer command. The entry point is the
// module root main.go, which hands off to internal/cli.
//
// frame-viewer plays image sequences and video files through a byte-budgeted
// frame cache. Frames are rendered by a single preload worker that always
// works on the most recently requested frame, through a decode, resize,
// LUT and perspective warp pipeline.
//
// # Application Lifecycle
//
//  1. Configuration: flags, environment variables and an optional config
//     file are merged by viper (see package startup)
//  2. Memory: GOMEMLIMIT is derived from MEMORY_LIMIT ("auto" reads the
//     cgroup limit) and the cache budget is capped to fit
//  3. Instrumentation: Prometheus metrics are pre-populated and filesystem
//     retries are observed
//  4. Session: the source is probed, the worker and playback clock start,
//     and the first frame is requested
//  5. Optional HTTP status API (serve, play --metrics-addr)
//  6. Graceful shutdown on SIGINT/SIGTERM
//
// # Commands
//
//	frame-viewer probe <path>
//	frame-viewer lut check <file.cube>...
//	frame-viewer render <path> --frame N [--corners ...] -o out.png
//	frame-viewer play <path> [--reverse] [--frames N] [--fps R]
//	frame-viewer export <path> [--in A --out B] -o out.%04d.png|out.mp4
//	frame-viewer serve <path> [--metrics-addr :8080] [--play]
//
// # Build Requirements
//
// CGO is required for libvips and the FFmpeg libraries used to decode
// container video. The ffmpeg binary is needed for mp4 export.
//
//	go build -o frame-viewer .
package main
