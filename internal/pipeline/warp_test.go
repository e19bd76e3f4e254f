package pipeline

import (
	"errors"
	"math"
	"testing"

	"frame-viewer/internal/frame"
)

func TestHomographyMapsCorners(t *testing.T) {
	src := frame.IdentityQuad(100, 50)
	dst := frame.Quad{{10, 5}, {90, 0}, {100, 50}, {0, 45}}

	m, err := Homography(src, dst)
	if err != nil {
		t.Fatalf("Homography() error = %v", err)
	}
	for i := range src {
		x, y, ok := m.Apply(src[i].X, src[i].Y)
		if !ok {
			t.Fatalf("corner %d mapped to infinity", i)
		}
		if math.Abs(x-dst[i].X) > 1e-6 || math.Abs(y-dst[i].Y) > 1e-6 {
			t.Errorf("corner %d -> (%v, %v), want (%v, %v)", i, x, y, dst[i].X, dst[i].Y)
		}
	}

	inv, err := m.Inverse()
	if err != nil {
		t.Fatalf("Inverse() error = %v", err)
	}
	x, y, _ := inv.Apply(dst[2].X, dst[2].Y)
	if math.Abs(x-100) > 1e-6 || math.Abs(y-50) > 1e-6 {
		t.Errorf("inverse of corner 2 = (%v, %v), want (100, 50)", x, y)
	}
}

func TestHomographyDegenerate(t *testing.T) {
	tests := []struct {
		name string
		dst  frame.Quad
	}{
		{"single point", frame.Quad{{5, 5}, {5, 5}, {5, 5}, {5, 5}}},
		{"collinear", frame.Quad{{0, 0}, {10, 0}, {20, 0}, {30, 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := WarpPerspective(frame.NewBuffer(10, 10), tt.dst)
			if !errors.Is(err, ErrDegenerateWarp) {
				t.Errorf("WarpPerspective() error = %v, want ErrDegenerateWarp", err)
			}
		})
	}
}

func gradient(w, h int) *frame.Buffer {
	buf := frame.NewBuffer(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf.Set(x, y, float32(x*3%256)/255, float32(y*5%256)/255, 128.0/255)
		}
	}
	return buf
}

func TestWarpIdentity(t *testing.T) {
	src := gradient(40, 30)
	out, err := WarpPerspective(src, frame.IdentityQuad(40, 30))
	if err != nil {
		t.Fatalf("WarpPerspective() error = %v", err)
	}
	if !out.RGB8().Equal(src.RGB8()) {
		t.Error("identity warp changed the image")
	}
}

func TestWarpOutsideIsBlack(t *testing.T) {
	src := frame.NewBuffer(32, 32)
	for i := range src.Pix {
		src.Pix[i] = 1
	}

	// Shrink the image into the top-left quarter.
	out, err := WarpPerspective(src, frame.Quad{{0, 0}, {16, 0}, {16, 16}, {0, 16}})
	if err != nil {
		t.Fatalf("WarpPerspective() error = %v", err)
	}
	if r, g, b := out.At(4, 4); r != 1 || g != 1 || b != 1 {
		t.Errorf("inside pixel = (%v, %v, %v), want white", r, g, b)
	}
	if r, g, b := out.At(28, 28); r != 0 || g != 0 || b != 0 {
		t.Errorf("outside pixel = (%v, %v, %v), want black", r, g, b)
	}
	if out.Width != 32 || out.Height != 32 {
		t.Errorf("size = %dx%d, want 32x32", out.Width, out.Height)
	}
}

func BenchmarkWarpPerspective(b *testing.B) {
	src := gradient(960, 540)
	quad := frame.Quad{{20, 10}, {940, 0}, {960, 540}, {0, 520}}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := WarpPerspective(src, quad); err != nil {
			b.Fatal(err)
		}
	}
}
