// Package mediatypes provides shared type definitions for media file handling.
//
// This package exists as a dependency-free foundation that can be imported by other
// packages without creating import cycles.
//
// # Extension Detection
//
//	fileType := mediatypes.GetFileType(mediatypes.Ext(path))
//
//	switch fileType {
//	case mediatypes.FileTypeImage:
//	    // still image or sequence member
//	case mediatypes.FileTypeVideo:
//	    // container video
//	}
//
// # Decoder Backends
//
// Each extension also records which decoder reads it natively. Stills with
// BackendVips (EXR, DPX, HEIC, TGA) skip the Go decoders and go straight to
// libvips, or to ffmpeg when libvips is not running.
//
// # MIME Types
//
// Use GetMimeType to label rendered frames served over HTTP:
//
//	mimeType := mediatypes.GetMimeType(".png") // "image/png"
package mediatypes
