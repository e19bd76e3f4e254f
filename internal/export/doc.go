// Package export renders a frame range to disk.
//
// Frames go through the same pipeline as interactive viewing, so exports
// carry the selected tier, LUT and warp. Image outputs (.png, .jpg, .tif)
// produce a numbered sequence; .mp4 pipes raw RGB frames into ffmpeg.
//
// An export opens its own decoders and never shares them with a running
// viewer session.
package export
