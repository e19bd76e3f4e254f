package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"frame-viewer/internal/filesystem"
	"frame-viewer/internal/logging"
	"frame-viewer/internal/mediatypes"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ffmpegTimeout bounds the ffmpeg fallback for a single still.
const ffmpegTimeout = 30 * time.Second

// sequenceDecoder reads frames of a numbered image sequence.
type sequenceDecoder struct {
	seq    Sequence
	meta   Metadata
	closed bool
}

// OpenSequence opens the image sequence path belongs to. A still image
// without a frame number opens as a one-frame sequence at index 0.
func OpenSequence(path string) (Decoder, error) {
	seq, err := ParseSequence(path)
	if err != nil {
		return nil, err
	}

	first := seq.Path(seq.First)
	w, h, err := stillDimensions(first)
	if err != nil {
		return nil, &DecodeError{Source: path, Index: seq.First, Err: err}
	}

	logging.Debug("Opened sequence %s frames %d-%d (%dx%d)", seq.Pattern(), seq.First, seq.Last, w, h)

	return &sequenceDecoder{
		seq: seq,
		meta: Metadata{
			FirstFrame: seq.First,
			LastFrame:  seq.Last,
			Width:      w,
			Height:     h,
		},
	}, nil
}

func (d *sequenceDecoder) Metadata() Metadata {
	return d.meta
}

func (d *sequenceDecoder) Read(index int) (image.Image, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if index < d.meta.FirstFrame || index > d.meta.LastFrame {
		return nil, &DecodeError{
			Source: d.seq.Pattern(),
			Index:  index,
			Err:    fmt.Errorf("frame outside %d-%d", d.meta.FirstFrame, d.meta.LastFrame),
		}
	}

	img, err := DecodeStill(d.seq.Path(index))
	if err != nil {
		return nil, &DecodeError{Source: d.seq.Pattern(), Index: index, Err: err}
	}
	return img, nil
}

func (d *sequenceDecoder) Close() error {
	d.closed = true
	return nil
}

// stillDimensions reads the image header, decoding the whole file only for
// formats the Go decoders do not know.
func stillDimensions(path string) (int, int, error) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	if cfg, _, err := image.DecodeConfig(f); err == nil {
		return cfg.Width, cfg.Height, nil
	}

	img, err := DecodeStill(path)
	if err != nil {
		return 0, 0, err
	}
	b := img.Bounds()
	return b.Dx(), b.Dy(), nil
}

// DecodeStill decodes one image file. It tries the Go decoders first, then
// libvips when it has been initialized, then ffmpeg.
func DecodeStill(path string) (image.Image, error) {
	var (
		img image.Image
		err error
	)
	if mediatypes.DecoderFor(mediatypes.Ext(path)) == mediatypes.BackendVips {
		// No Go decoder for these; only check that the file is there.
		_, err = filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	} else {
		img, err = decodeImageFile(path)
		if err == nil {
			return img, nil
		}
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		logging.Debug("imaging decode failed for %s: %v, trying fallback methods", filepath.Base(path), err)
	}

	if IsVipsAvailable() {
		img, err = LoadImageWithVips(path)
		if err == nil {
			return img, nil
		}
		logging.Debug("vips decode failed for %s: %v, trying ffmpeg fallback", filepath.Base(path), err)
	}

	img, err = decodeWithFFmpeg(path)
	if err != nil {
		return nil, fmt.Errorf("all image decode methods failed for %s: %w", path, err)
	}
	return img, nil
}

func decodeImageFile(path string) (image.Image, error) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return imaging.Decode(f, imaging.AutoOrientation(true))
}

func decodeWithFFmpeg(path string) (image.Image, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ffmpegTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-pix_fmt", "rgb24",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %v, stderr: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", path)
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}
