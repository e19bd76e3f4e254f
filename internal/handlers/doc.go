// Package handlers provides the HTTP status API of a viewer session.
//
// It includes handlers for:
//   - Health, liveness and version probes
//   - Prometheus metrics
//   - Frame cache contents and playback state
//   - Fetching a rendered frame as PNG, seeking and play/pause
//   - A live multipart JPEG stream of the playhead
package handlers
