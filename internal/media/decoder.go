package media

import (
	"errors"
	"fmt"
	"image"
)

// Errors returned by decoders and the registry.
var (
	ErrUnsupported = errors.New("unsupported media")
	ErrNotFound    = errors.New("media not found")
	ErrClosed      = errors.New("decoder closed")
)

// Metadata describes a decodable source.
type Metadata struct {
	FirstFrame int
	LastFrame  int
	// FPS is the native frame rate, 0 when the source does not carry one
	// (image sequences).
	FPS    float64
	Width  int
	Height int
}

// FrameCount is the number of frames between FirstFrame and LastFrame.
func (m Metadata) FrameCount() int {
	if m.LastFrame < m.FirstFrame {
		return 0
	}
	return m.LastFrame - m.FirstFrame + 1
}

// Clamp limits index to [FirstFrame, LastFrame].
func (m Metadata) Clamp(index int) int {
	if index < m.FirstFrame {
		return m.FirstFrame
	}
	if index > m.LastFrame {
		return m.LastFrame
	}
	return index
}

// Decoder reads frames from one source. Implementations are not safe for
// concurrent use; each decoder has a single owner.
type Decoder interface {
	Metadata() Metadata
	// Read decodes the frame at index, which must lie within
	// [FirstFrame, LastFrame].
	Read(index int) (image.Image, error)
	Close() error
}

// Opener creates a decoder for path.
type Opener func(path string) (Decoder, error)

// DecodeError reports a frame that could not be decoded.
type DecodeError struct {
	Source string
	Index  int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s frame %d: %v", e.Source, e.Index, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
