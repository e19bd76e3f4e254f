package streaming

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"frame-viewer/internal/logging"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a single frame could not be written in
	// time, usually because the client reads too slowly.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the request context was canceled.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates that Close was called or MaxDuration elapsed.
	ErrStreamCanceled = errors.New("stream canceled")
)

// Boundary separates the parts of a frame stream.
const Boundary = "frame"

// Config configures a FrameWriter.
type Config struct {
	// WriteTimeout bounds the write of one frame.
	WriteTimeout time.Duration
	// KeepAlive is how often the handler should resend the last frame when
	// nothing changes, so proxies do not drop an idle stream.
	KeepAlive time.Duration
	// MaxDuration ends the stream after this long (0 = unlimited).
	MaxDuration time.Duration
	// Quality is the JPEG quality of each part.
	Quality int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 10 * time.Second,
		KeepAlive:    5 * time.Second,
		MaxDuration:  0,
		Quality:      85,
	}
}

// FrameWriter writes rendered frames to an HTTP response as a
// multipart/x-mixed-replace stream of JPEG parts, which browsers display as
// live video.
type FrameWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mp      *multipart.Writer
	ctx     context.Context
	cancel  context.CancelFunc
	config  Config
	buf     bytes.Buffer

	mu        sync.Mutex
	startTime time.Time
	frames    int64
	bytes     int64
	closed    bool
}

// NewFrameWriter sets the stream headers on w. Frames follow with
// WriteFrame.
func NewFrameWriter(ctx context.Context, w http.ResponseWriter, config Config) *FrameWriter {
	writerCtx, cancel := context.WithCancel(ctx)
	fw := &FrameWriter{
		w:         w,
		ctx:       writerCtx,
		cancel:    cancel,
		config:    config,
		startTime: time.Now(),
	}
	if flusher, ok := w.(http.Flusher); ok {
		fw.flusher = flusher
	}

	fw.mp = multipart.NewWriter(w)
	_ = fw.mp.SetBoundary(Boundary)

	h := w.Header()
	h.Set("Content-Type", "multipart/x-mixed-replace; boundary="+Boundary)
	h.Set("Cache-Control", "no-cache, no-store")
	h.Set("X-Content-Type-Options", "nosniff")
	return fw
}

// WriteFrame encodes img as JPEG and sends it as the next part.
func (fw *FrameWriter) WriteFrame(img image.Image) error {
	fw.mu.Lock()
	closed := fw.closed
	fw.mu.Unlock()
	if closed {
		return ErrStreamCanceled
	}
	if err := fw.contextError(); err != nil {
		return err
	}
	if fw.config.MaxDuration > 0 && time.Since(fw.startTime) > fw.config.MaxDuration {
		return ErrStreamCanceled
	}

	fw.buf.Reset()
	if err := imaging.Encode(&fw.buf, img, imaging.JPEG, imaging.JPEGQuality(fw.config.Quality)); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Type", "image/jpeg")
	header.Set("Content-Length", strconv.Itoa(fw.buf.Len()))

	n := int64(fw.buf.Len())
	err := fw.withTimeout(func() error {
		part, err := fw.mp.CreatePart(header)
		if err != nil {
			return err
		}
		if _, err := part.Write(fw.buf.Bytes()); err != nil {
			return err
		}
		if fw.flusher != nil {
			fw.flusher.Flush()
		}
		return nil
	})
	if err != nil {
		return err
	}

	fw.mu.Lock()
	fw.frames++
	fw.bytes += n
	fw.mu.Unlock()
	return nil
}

// withTimeout runs write on its own goroutine and gives up after
// WriteTimeout. A timed out write cancels the stream; the goroutine finishes
// once the connection is torn down.
func (fw *FrameWriter) withTimeout(write func() error) error {
	done := make(chan error, 1)
	go func() { done <- write() }()

	timeout := fw.config.WriteTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().WriteTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		fw.cancel()
		return ErrWriteTimeout
	case <-fw.ctx.Done():
		return fw.contextError()
	}
}

// contextError maps the writer context state onto the sentinel errors.
func (fw *FrameWriter) contextError() error {
	switch {
	case fw.ctx.Err() == nil:
		return nil
	case errors.Is(context.Cause(fw.ctx), context.Canceled):
		fw.mu.Lock()
		closed := fw.closed
		fw.mu.Unlock()
		if closed {
			return ErrStreamCanceled
		}
		return ErrClientGone
	default:
		return ErrStreamCanceled
	}
}

// Close ends the stream. It is safe to call more than once.
func (fw *FrameWriter) Close() error {
	fw.mu.Lock()
	if fw.closed {
		fw.mu.Unlock()
		return nil
	}
	fw.closed = true
	frames, written := fw.frames, fw.bytes
	fw.mu.Unlock()

	fw.cancel()
	logging.Debug("Frame stream closed: %d frames, %d bytes in %v", frames, written, time.Since(fw.startTime))
	return nil
}

// Stats returns streaming statistics
func (fw *FrameWriter) Stats() (frames, bytesWritten int64, duration time.Duration) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.frames, fw.bytes, time.Since(fw.startTime)
}
