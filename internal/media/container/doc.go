// Package container decodes frames from container video files (mp4, mov,
// mkv, webm, mxf) through the FFmpeg libraries bound by go-astiav.
//
// A decoder keeps its demuxer position between reads, so stepping forward
// through a clip decodes each frame once. Requests behind the current
// position, or far ahead of it, seek to the preceding keyframe and decode
// forward from there.
package container
