// Package viewer wires the frame engine together.
//
// A Session owns the decoder and LUT registries, the pipeline, the frame
// cache, the preload worker and the playback clock, and exposes the settings
// a front end changes at run time: cache budget, resolution tier, frame
// rate, LUT, warp and in/out range. One Session exists per process.
//
// Front ends call Seek, Play and Current from their own goroutine. Only the
// worker goroutine touches decoders.
package viewer
