// Package media decodes source frames for the pipeline.
//
// A source is either a numbered image sequence (shot.1001.exr ...
// shot.1100.exr, or a single still) or a container video. Every source is
// exposed through the Decoder interface:
//
//	d, err := media.DefaultOpeners().Open("/shots/a/shot.1001.png")
//	meta := d.Metadata() // FirstFrame 1001, LastFrame 1100, FPS 0
//	img, err := d.Read(1050)
//
// Stills are decoded with imaging (auto-orientation honored), falling back
// to libvips and then ffmpeg for formats the Go decoders do not cover.
// Container video lives in the container subpackage so that the cgo FFmpeg
// bindings stay optional.
//
// Registry caches one decoder per path and is owned by a single goroutine.
package media
