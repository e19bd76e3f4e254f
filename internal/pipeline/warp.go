package pipeline

import (
	"errors"
	"math"

	"frame-viewer/internal/frame"
	"frame-viewer/internal/workers"
)

// ErrDegenerateWarp is returned for quads that do not define an invertible
// projective mapping (repeated or collinear corners).
var ErrDegenerateWarp = errors.New("degenerate warp quad")

const epsilon = 1e-10

// Matrix3 is a row-major 3x3 projective transform.
type Matrix3 [9]float64

// Apply maps (x, y). ok is false for points sent to infinity.
func (m Matrix3) Apply(x, y float64) (float64, float64, bool) {
	w := m[6]*x + m[7]*y + m[8]
	if math.Abs(w) < epsilon {
		return 0, 0, false
	}
	return (m[0]*x + m[1]*y + m[2]) / w, (m[3]*x + m[4]*y + m[5]) / w, true
}

// Inverse returns the inverse transform.
func (m Matrix3) Inverse() (Matrix3, error) {
	a, b, c := m[0], m[1], m[2]
	d, e, f := m[3], m[4], m[5]
	g, h, i := m[6], m[7], m[8]

	A := e*i - f*h
	B := -(d*i - f*g)
	C := d*h - e*g
	det := a*A + b*B + c*C
	if math.Abs(det) < epsilon {
		return Matrix3{}, ErrDegenerateWarp
	}

	inv := Matrix3{
		A, -(b*i - c*h), b*f - c*e,
		B, a*i - c*g, -(a*f - c*d),
		C, -(a*h - b*g), a*e - b*d,
	}
	for k := range inv {
		inv[k] /= det
	}
	return inv, nil
}

// Homography solves for the transform mapping each src corner onto the
// matching dst corner.
func Homography(src, dst frame.Quad) (Matrix3, error) {
	// Eight unknowns h0..h7 with h8 fixed to 1, two equations per corner.
	var a [8][9]float64
	for k := 0; k < 4; k++ {
		x, y := src[k].X, src[k].Y
		u, v := dst[k].X, dst[k].Y
		a[2*k] = [9]float64{x, y, 1, 0, 0, 0, -u * x, -u * y, u}
		a[2*k+1] = [9]float64{0, 0, 0, x, y, 1, -v * x, -v * y, v}
	}

	for col := 0; col < 8; col++ {
		pivot := col
		for r := col + 1; r < 8; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < epsilon {
			return Matrix3{}, ErrDegenerateWarp
		}
		a[col], a[pivot] = a[pivot], a[col]

		for r := 0; r < 8; r++ {
			if r == col {
				continue
			}
			f := a[r][col] / a[col][col]
			for c := col; c < 9; c++ {
				a[r][c] -= f * a[col][c]
			}
		}
	}

	var m Matrix3
	for k := 0; k < 8; k++ {
		m[k] = a[k][8] / a[k][k]
	}
	m[8] = 1

	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Matrix3{}, ErrDegenerateWarp
		}
	}
	return m, nil
}

// WarpPerspective maps the corners of buf onto quad and resamples with
// bilinear filtering. The output has the size of buf; pixels whose source
// position falls outside buf are black.
func WarpPerspective(buf *frame.Buffer, quad frame.Quad) (*frame.Buffer, error) {
	w, h := buf.Width, buf.Height
	out := frame.NewBuffer(w, h)
	if w == 0 || h == 0 {
		return out, nil
	}

	fwd, err := Homography(frame.IdentityQuad(w, h), quad)
	if err != nil {
		return nil, err
	}
	inv, err := fwd.Inverse()
	if err != nil {
		return nil, err
	}

	fw, fh := float64(w), float64(h)
	workers.Bands(h, workers.ForCPU(0), func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				sx, sy, ok := inv.Apply(float64(x)+0.5, float64(y)+0.5)
				if !ok || sx < 0 || sy < 0 || sx >= fw || sy >= fh {
					continue
				}
				r, g, b := bilinear(buf, sx-0.5, sy-0.5)
				out.Set(x, y, r, g, b)
			}
		}
	})
	return out, nil
}

// bilinear samples buf at pixel-center coordinates (x, y), clamping the
// neighborhood to the image.
func bilinear(buf *frame.Buffer, x, y float64) (float32, float32, float32) {
	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := float32(x-x0), float32(y-y0)
	ix0, iy0 := clampInt(int(x0), buf.Width-1), clampInt(int(y0), buf.Height-1)
	ix1, iy1 := clampInt(int(x0)+1, buf.Width-1), clampInt(int(y0)+1, buf.Height-1)

	r00, g00, b00 := buf.At(ix0, iy0)
	r10, g10, b10 := buf.At(ix1, iy0)
	r01, g01, b01 := buf.At(ix0, iy1)
	r11, g11, b11 := buf.At(ix1, iy1)

	lerp2 := func(v00, v10, v01, v11 float32) float32 {
		top := v00 + (v10-v00)*fx
		bottom := v01 + (v11-v01)*fx
		return top + (bottom-top)*fy
	}
	return lerp2(r00, r10, r01, r11), lerp2(g00, g10, g01, g11), lerp2(b00, b10, b01, b11)
}

func clampInt(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
