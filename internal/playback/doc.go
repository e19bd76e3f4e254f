// Package playback drives frame advancement at a fixed rate.
//
// The clock advances only when the frame on screen has been rendered. When
// it is not available yet the clock stalls on it and resumes once
// FrameReady reports that frame, so playback never runs ahead of rendering.
// Advancement wraps around inside the in/out range.
package playback
