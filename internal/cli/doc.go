// Package cli implements the frame-viewer command line.
//
// Commands:
//   - probe: print frame range, rate, size and per-tier frame cost of a source
//   - lut check: parse .cube files and report their shape
//   - render: evaluate one frame key and save it as an image
//   - play: headless playback with a live status line
//   - export: render a range to an image sequence or mp4
//   - serve: keep a session open behind the HTTP status API
//
// Every command resolves its settings through startup.LoadConfig, so
// --config files, environment variables and flags compose the same way.
package cli
