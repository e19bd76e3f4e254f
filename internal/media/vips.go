package media

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"frame-viewer/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
)

// libvips keeps its own operation cache; a handful of full-resolution plates
// is enough since the frame cache sits above it.
const (
	vipsCacheMem   = 64 * 1024 * 1024
	vipsCacheItems = 16
)

var vipsState struct {
	sync.Mutex
	running bool
}

// vipsThreshold is the least severe libvips message forwarded at each level.
var vipsThreshold = map[logging.LogLevel]vips.LogLevel{
	logging.LevelDebug: vips.LogLevelInfo,
	logging.LevelInfo:  vips.LogLevelWarning,
	logging.LevelWarn:  vips.LogLevelError,
	logging.LevelError: vips.LogLevelCritical,
}

// forwardVipsLog maps glib levels, where lower values are more severe.
func forwardVipsLog(domain string, level vips.LogLevel, msg string) {
	switch {
	case level <= vips.LogLevelCritical:
		logging.Error("[%s] %s", domain, msg)
	case level == vips.LogLevelWarning:
		logging.Warn("[%s] %s", domain, msg)
	default:
		logging.Debug("[%s] %s", domain, msg)
	}
}

// InitVips starts libvips for the decode fallback. Calling it again is a no-op.
func InitVips() error {
	vipsState.Lock()
	defer vipsState.Unlock()

	if vipsState.running {
		return nil
	}

	threshold, ok := vipsThreshold[logging.GetLevel()]
	if !ok {
		threshold = vips.LogLevelWarning
	}
	// Must be set before Startup or libvips prints to stderr on its own.
	vips.LoggingSettings(forwardVipsLog, threshold)

	// The worker decodes one frame at a time.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      vipsCacheMem,
		MaxCacheSize:     vipsCacheItems,
	})

	vipsState.running = true
	logging.Info("libvips %s ready for EXR/DPX/HEIC decode", vips.Version)
	return nil
}

// ShutdownVips releases libvips.
func ShutdownVips() {
	vipsState.Lock()
	defer vipsState.Unlock()

	if !vipsState.running {
		return
	}
	vips.Shutdown()
	vipsState.running = false
	logging.Info("libvips shut down")
}

// IsVipsAvailable reports whether InitVips has run.
func IsVipsAvailable() bool {
	vipsState.Lock()
	defer vipsState.Unlock()
	return vipsState.running
}

// LoadImageWithVips decodes a still at full resolution with libvips. It is
// the fallback for formats the Go decoders cannot read (EXR, DPX, HEIC).
func LoadImageWithVips(path string) (image.Image, error) {
	if !IsVipsAvailable() {
		return nil, fmt.Errorf("libvips not available")
	}

	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips load %s: %w", filepath.Base(path), err)
	}
	defer ref.Close()

	if err := toDisplayRange(ref); err != nil {
		return nil, err
	}

	// PNG is lossless, so 16-bit plates keep their precision until imaging
	// converts them.
	encoded, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("vips export %s: %w", filepath.Base(path), err)
	}

	img, err := imaging.Decode(bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode vips output for %s: %w", filepath.Base(path), err)
	}

	logging.Debug("vips decoded %s (%dx%d, %d bands)",
		filepath.Base(path), img.Bounds().Dx(), img.Bounds().Dy(), ref.Bands())
	return img, nil
}

// toDisplayRange scales float plates from [0,1] to 8 bits in place.
func toDisplayRange(ref *vips.ImageRef) error {
	switch ref.BandFormat() {
	case vips.BandFormatFloat, vips.BandFormatDouble:
	default:
		return nil
	}
	if err := ref.Linear1(255, 0); err != nil {
		return fmt.Errorf("vips scale: %w", err)
	}
	if err := ref.Cast(vips.BandFormatUchar); err != nil {
		return fmt.Errorf("vips cast: %w", err)
	}
	return nil
}
