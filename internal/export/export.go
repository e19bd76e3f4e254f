package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"frame-viewer/internal/frame"
	"frame-viewer/internal/logging"
	"frame-viewer/internal/lut"
	"frame-viewer/internal/media"
	"frame-viewer/internal/memory"
	"frame-viewer/internal/metrics"
	"frame-viewer/internal/pipeline"
	"frame-viewer/internal/playback"
)

// Errors returned by Run.
var (
	ErrUnsupportedOutput = errors.New("unsupported output format")
	ErrFFmpegMissing     = errors.New("ffmpeg not found in PATH")
	ErrFrameSizeChanged  = errors.New("frame size changed during export")
)

// Format is an output kind.
type Format string

const (
	FormatSequence Format = "sequence"
	FormatMP4      Format = "mp4"
)

// DetectFormat picks the output format from the file extension.
func DetectFormat(output string) (Format, error) {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp":
		return FormatSequence, nil
	case ".mp4":
		return FormatMP4, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedOutput, output)
}

// FramePath names frame index of a sequence export. Outputs containing a
// printf verb ("out.%05d.png") are formatted directly; otherwise a five digit
// number is inserted before the extension.
func FramePath(output string, index int) string {
	if strings.Contains(output, "%") {
		return fmt.Sprintf(output, index)
	}
	ext := filepath.Ext(output)
	return fmt.Sprintf("%s%05d%s", strings.TrimSuffix(output, ext), index, ext)
}

// Options describes an export. First and Last both zero export the whole
// source.
type Options struct {
	Source  string
	First   int
	Last    int
	Tier    frame.Tier
	LUT     string
	Warp    frame.Quad
	HasWarp bool
	Output  string
	// FPS overrides the source rate for video outputs.
	FPS float64

	Openers  media.Openers
	Progress func(done, total int)
}

// Result summarizes a finished export.
type Result struct {
	Format Format
	Frames int
	First  int
	Last   int
	// Output is the written file, or the pattern of a sequence.
	Output   string
	Duration time.Duration
}

// Run renders the frames and writes them to opts.Output.
func Run(ctx context.Context, opts Options) (Result, error) {
	format, err := DetectFormat(opts.Output)
	if err != nil {
		return Result{}, err
	}
	if opts.HasWarp && !opts.Warp.Finite() {
		return Result{}, frame.ErrNonFiniteQuad
	}
	if opts.Openers == nil {
		opts.Openers = media.DefaultOpeners()
	}

	decoders := media.NewRegistry(opts.Openers)
	defer decoders.Close()

	dec, err := decoders.Decoder(opts.Source)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", opts.Source, err)
	}
	meta := dec.Metadata()

	first, last := meta.FirstFrame, meta.LastFrame
	if opts.First != 0 || opts.Last != 0 {
		first, last = meta.Clamp(opts.First), meta.Clamp(opts.Last)
	}
	if last < first {
		return Result{}, fmt.Errorf("empty frame range %d-%d", first, last)
	}

	var luts pipeline.LUTs
	if opts.LUT != "" {
		reg, err := lut.NewRegistry(memory.DefaultLUTBudget)
		if err != nil {
			return Result{}, err
		}
		defer reg.Close()
		if _, err := reg.Use(opts.LUT); err != nil {
			return Result{}, err
		}
		luts = reg
	}
	pipe := pipeline.New(decoders, luts)

	render := func(index int) (*frame.RGB8, error) {
		key := frame.Key{Source: opts.Source, Index: index, Tier: opts.Tier, LUT: opts.LUT}
		if opts.HasWarp {
			key = key.WithWarp(opts.Warp)
		}
		return pipe.Evaluate(ctx, key, nil)
	}

	res := Result{Format: format, First: first, Last: last, Output: opts.Output}
	start := time.Now()
	logging.Info("Exporting %s frames %d-%d to %s (%s)", opts.Source, first, last, opts.Output, format)

	switch format {
	case FormatSequence:
		res.Frames, err = writeSequence(ctx, opts, first, last, render)
	case FormatMP4:
		fps := opts.FPS
		if fps <= 0 {
			fps = meta.FPS
		}
		if fps <= 0 {
			fps = playback.DefaultFPS
		}
		res.Frames, err = writeMP4(ctx, opts, first, last, fps, render)
	}
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}

	logging.Info("Exported %d frames in %v", res.Frames, res.Duration.Round(time.Millisecond))
	return res, nil
}

func progress(opts Options, done, total int) {
	if opts.Progress != nil {
		opts.Progress(done, total)
	}
}

func writeSequence(ctx context.Context, opts Options, first, last int, render func(int) (*frame.RGB8, error)) (int, error) {
	if dir := filepath.Dir(opts.Output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create output directory: %w", err)
		}
	}

	total := last - first + 1
	for i := first; i <= last; i++ {
		if err := ctx.Err(); err != nil {
			return i - first, err
		}
		img, err := render(i)
		if err != nil {
			return i - first, err
		}

		path := FramePath(opts.Output, i)
		if err := imaging.Save(img, path, imaging.JPEGQuality(95)); err != nil {
			return i - first, fmt.Errorf("write %s: %w", path, err)
		}
		metrics.ExportFramesTotal.WithLabelValues(string(FormatSequence)).Inc()
		progress(opts, i-first+1, total)
	}
	return total, nil
}

func writeMP4(ctx context.Context, opts Options, first, last int, fps float64, render func(int) (*frame.RGB8, error)) (int, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return 0, ErrFFmpegMissing
	}

	// The first frame fixes the raw video size.
	img, err := render(first)
	if err != nil {
		return 0, err
	}
	w, h := img.Width, img.Height

	args := []string{
		"-v", "error",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", w, h),
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "-",
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "18",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		opts.Output,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return 0, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	total := last - first + 1
	written, writeErr := pipeFrames(ctx, stdin, img, first, last, w, h, render, func(done int) {
		metrics.ExportFramesTotal.WithLabelValues(string(FormatMP4)).Inc()
		progress(opts, done, total)
	})
	closeErr := stdin.Close()
	cmdErr := cmd.Wait()

	if writeErr != nil {
		return written, writeErr
	}
	if closeErr != nil {
		return written, fmt.Errorf("failed to close ffmpeg input: %w", closeErr)
	}
	if cmdErr != nil {
		if ctx.Err() != nil {
			return written, ctx.Err()
		}
		logging.Error("FFmpeg stderr: %s", stderr.String())
		return written, fmt.Errorf("encoding error: %w", cmdErr)
	}
	return written, nil
}

// pipeFrames writes first (already rendered) and the rest of the range to w
// as packed RGB.
func pipeFrames(ctx context.Context, w io.Writer, firstImg *frame.RGB8, first, last, width, height int,
	render func(int) (*frame.RGB8, error), done func(int)) (int, error) {
	img := firstImg
	for i := first; i <= last; i++ {
		if i > first {
			if err := ctx.Err(); err != nil {
				return i - first, err
			}
			var err error
			if img, err = render(i); err != nil {
				return i - first, err
			}
		}
		if img.Width != width || img.Height != height {
			return i - first, fmt.Errorf("%w: frame %d is %dx%d, expected %dx%d",
				ErrFrameSizeChanged, i, img.Width, img.Height, width, height)
		}
		if _, err := w.Write(img.Pix); err != nil {
			return i - first, fmt.Errorf("failed to write frame %d to ffmpeg: %w", i, err)
		}
		done(i - first + 1)
	}
	return last - first + 1, nil
}
