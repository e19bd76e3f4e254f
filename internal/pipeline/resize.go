package pipeline

import (
	"github.com/disintegration/imaging"

	"frame-viewer/internal/frame"
)

// Resize downsamples buf by an integer factor with nearest-neighbor
// sampling. The result is floor(w/factor) x floor(h/factor); a factor of 1
// or less returns buf itself.
//
// Decoded buffers hold 8-bit values, so the round trip through NRGBA is
// lossless.
func Resize(buf *frame.Buffer, factor int) *frame.Buffer {
	if factor <= 1 {
		return buf
	}
	w, h := buf.Width/factor, buf.Height/factor
	if w == 0 || h == 0 {
		return frame.NewBuffer(w, h)
	}
	return frame.FromImage(imaging.Resize(buf.NRGBA(), w, h, imaging.NearestNeighbor))
}
