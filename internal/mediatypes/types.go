package mediatypes

import (
	"path/filepath"
	"strings"
)

// FileType represents the type of a media file.
type FileType string

const (
	// FileTypeImage represents a still image, alone or as a sequence member.
	FileTypeImage FileType = "image"
	// FileTypeVideo represents a container with a video stream.
	FileTypeVideo FileType = "video"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// Backend names the decoder that can read a format natively.
type Backend int

const (
	// BackendNone means no decoder is known.
	BackendNone Backend = iota
	// BackendGo is a registered image.Decode format.
	BackendGo
	// BackendVips needs libvips (or the ffmpeg fallback when vips is off).
	BackendVips
	// BackendContainer is demuxed and decoded by libav.
	BackendContainer
)

func (b Backend) String() string {
	switch b {
	case BackendGo:
		return "go"
	case BackendVips:
		return "vips"
	case BackendContainer:
		return "libav"
	default:
		return "none"
	}
}

// Format describes one file extension.
type Format struct {
	Type    FileType
	MIME    string
	Backend Backend
}

func still(mime string, b Backend) Format { return Format{FileTypeImage, mime, b} }
func clip(mime string) Format { return Format{FileTypeVideo, mime, BackendContainer} }

// formats is keyed by lowercase extension with the leading dot.
var formats = map[string]Format{
	".jpg":  still("image/jpeg", BackendGo),
	".jpeg": still("image/jpeg", BackendGo),
	".png":  still("image/png", BackendGo),
	".gif":  still("image/gif", BackendGo),
	".bmp":  still("image/bmp", BackendGo),
	".webp": still("image/webp", BackendGo),
	".tiff": still("image/tiff", BackendGo),
	".tif":  still("image/tiff", BackendGo),
	".heic": still("image/heic", BackendVips),
	".heif": still("image/heif", BackendVips),
	".exr":  still("image/x-exr", BackendVips),
	".dpx":  still("image/x-dpx", BackendVips),
	".tga":  still("image/x-tga", BackendVips),

	".mp4":  clip("video/mp4"),
	".mkv":  clip("video/x-matroska"),
	".avi":  clip("video/x-msvideo"),
	".mov":  clip("video/quicktime"),
	".mxf":  clip("application/mxf"),
	".wmv":  clip("video/x-ms-wmv"),
	".flv":  clip("video/x-flv"),
	".webm": clip("video/webm"),
	".m4v":  clip("video/x-m4v"),
	".mpeg": clip("video/mpeg"),
	".mpg":  clip("video/mpeg"),
	".3gp":  clip("video/3gpp"),
	".ts":   clip("video/mp2t"),
}

// Ext returns the lowercase extension of path including the leading dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// Lookup returns the format registered for ext (lowercase, with the dot).
func Lookup(ext string) (Format, bool) {
	f, ok := formats[ext]
	return f, ok
}

// GetFileType returns the FileType for a given file extension, or
// FileTypeOther if the extension is not recognized.
func GetFileType(ext string) FileType {
	if f, ok := formats[ext]; ok {
		return f.Type
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for ext, defaulting to
// application/octet-stream.
func GetMimeType(ext string) string {
	if f, ok := formats[ext]; ok {
		return f.MIME
	}
	return "application/octet-stream"
}

// DecoderFor returns the backend that reads ext natively.
func DecoderFor(ext string) Backend {
	return formats[ext].Backend
}

// IsMediaFile returns true if the extension represents a supported media file.
func IsMediaFile(ext string) bool {
	_, ok := formats[ext]
	return ok
}
