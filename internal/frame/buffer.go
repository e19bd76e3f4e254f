package frame

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Buffer is an interleaved RGB image with float32 samples normalized to
// [0,1]. Buffers handed to a cache are never mutated again.
type Buffer struct {
	Width  int
	Height int
	Pix    []float32
}

// NewBuffer allocates a black w x h buffer.
func NewBuffer(w, h int) *Buffer {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Buffer{Width: w, Height: h, Pix: make([]float32, w*h*3)}
}

// FromImage converts an 8-bit image to a normalized float buffer. Alpha is
// ignored.
func FromImage(img image.Image) *Buffer {
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) {
		nrgba = imaging.Clone(img)
	}

	w, h := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	buf := NewBuffer(w, h)
	for y := 0; y < h; y++ {
		src := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*4]
		dst := buf.Pix[y*w*3 : (y+1)*w*3]
		for x := 0; x < w; x++ {
			dst[x*3] = float32(src[x*4]) / 255
			dst[x*3+1] = float32(src[x*4+1]) / 255
			dst[x*3+2] = float32(src[x*4+2]) / 255
		}
	}
	return buf
}

// Offset returns the index of the red sample of pixel (x, y).
func (b *Buffer) Offset(x, y int) int {
	return (y*b.Width + x) * 3
}

// At returns the samples of pixel (x, y).
func (b *Buffer) At(x, y int) (r, g, bl float32) {
	i := b.Offset(x, y)
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2]
}

// Set writes the samples of pixel (x, y).
func (b *Buffer) Set(x, y int, r, g, bl float32) {
	i := b.Offset(x, y)
	b.Pix[i], b.Pix[i+1], b.Pix[i+2] = r, g, bl
}

// SizeBytes is the memory held by the pixel slice.
func (b *Buffer) SizeBytes() int64 {
	return int64(len(b.Pix)) * 4
}

// NRGBA converts the buffer to an opaque 8-bit image.
func (b *Buffer) NRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	for y := 0; y < b.Height; y++ {
		src := b.Pix[y*b.Width*3 : (y+1)*b.Width*3]
		dst := img.Pix[y*img.Stride : y*img.Stride+b.Width*4]
		for x := 0; x < b.Width; x++ {
			dst[x*4] = quantize(src[x*3])
			dst[x*4+1] = quantize(src[x*3+1])
			dst[x*4+2] = quantize(src[x*3+2])
			dst[x*4+3] = 0xff
		}
	}
	return img
}

// RGB8 converts the buffer to its display form.
func (b *Buffer) RGB8() *RGB8 {
	out := NewRGB8(b.Width, b.Height)
	for i, v := range b.Pix {
		out.Pix[i] = quantize(v)
	}
	return out
}

// quantize rounds a normalized sample to 8 bits, clamping out-of-range
// values.
func quantize(v float32) uint8 {
	switch {
	case v <= 0 || v != v:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

// RGB8 is a display-ready 8-bit RGB image. It implements image.Image.
type RGB8 struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewRGB8 allocates a black w x h image.
func NewRGB8(w, h int) *RGB8 {
	return &RGB8{Width: w, Height: h, Pix: make([]uint8, w*h*3)}
}

// SizeBytes is the memory held by the pixel slice.
func (m *RGB8) SizeBytes() int64 {
	return int64(len(m.Pix))
}

// ColorModel implements image.Image.
func (m *RGB8) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements image.Image.
func (m *RGB8) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// At implements image.Image.
func (m *RGB8) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return color.NRGBA{}
	}
	i := (y*m.Width + x) * 3
	return color.NRGBA{R: m.Pix[i], G: m.Pix[i+1], B: m.Pix[i+2], A: 0xff}
}

// Equal reports whether both images have the same size and pixels.
func (m *RGB8) Equal(other *RGB8) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.Width != other.Width || m.Height != other.Height || len(m.Pix) != len(other.Pix) {
		return false
	}
	for i := range m.Pix {
		if m.Pix[i] != other.Pix[i] {
			return false
		}
	}
	return true
}
