package frame

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
)

func TestTierFactor(t *testing.T) {
	tests := []struct {
		tier     Tier
		expected int
		name     string
	}{
		{TierFull, 1, "full"},
		{TierHalf, 2, "half"},
		{TierQuarter, 4, "quarter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tier.Factor(); got != tt.expected {
				t.Errorf("Factor() = %d, want %d", got, tt.expected)
			}
			if got := tt.tier.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
		})
	}
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		input    string
		expected Tier
		wantErr  bool
	}{
		{"full", TierFull, false},
		{"HALF", TierHalf, false},
		{" quarter ", TierQuarter, false},
		{"2", TierHalf, false},
		{"4", TierQuarter, false},
		{"", TierFull, false},
		{"eighth", TierFull, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTier(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTier(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("ParseTier(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestKeyEquality(t *testing.T) {
	base := Key{Source: "/shots/a.0001.png", Index: 1, Tier: TierHalf}
	quad := Quad{{0, 0}, {10, 0}, {10, 10}, {0, 10}}

	tests := []struct {
		name  string
		other Key
		equal bool
	}{
		{"identical", base, true},
		{"different index", Key{Source: base.Source, Index: 2, Tier: TierHalf}, false},
		{"different tier", Key{Source: base.Source, Index: 1, Tier: TierFull}, false},
		{"with lut", Key{Source: base.Source, Index: 1, Tier: TierHalf, LUT: "a.cube"}, false},
		{"with warp", base.WithWarp(quad), false},
		{"same warp twice", base.WithWarp(quad), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base == tt.other; got != tt.equal {
				t.Errorf("base == other is %v, want %v", got, tt.equal)
			}
		})
	}

	m := map[Key]int{base.WithWarp(quad): 1}
	if m[base.WithWarp(Quad{{0, 0}, {10, 0}, {10, 10}, {0, 10}})] != 1 {
		t.Error("keys with equal fields should address the same map slot")
	}
}

func TestKeyPrefixes(t *testing.T) {
	k := Key{Source: "clip.mov", Index: 12, Tier: TierQuarter, LUT: "look.cube"}.
		WithWarp(Quad{{1, 1}, {9, 0}, {10, 10}, {0, 9}})

	if got := k.DecodeKey(); got != (Key{Source: "clip.mov", Index: 12}) {
		t.Errorf("DecodeKey() = %v", got)
	}
	if got := k.ResizeKey(); got != (Key{Source: "clip.mov", Index: 12, Tier: TierQuarter}) {
		t.Errorf("ResizeKey() = %v", got)
	}
	if got := k.ColorKey(); got != (Key{Source: "clip.mov", Index: 12, Tier: TierQuarter, LUT: "look.cube"}) {
		t.Errorf("ColorKey() = %v", got)
	}
}

func TestKeyValid(t *testing.T) {
	if (Key{}).Valid() {
		t.Error("zero key should be invalid")
	}
	if !(Key{Source: "x.png"}).Valid() {
		t.Error("key with a source should be valid")
	}

	nan := Key{Source: "x.png"}.WithWarp(Quad{{math.NaN(), 0}, {1, 0}, {1, 1}, {0, 1}})
	if nan.Valid() {
		t.Error("key with a NaN warp corner should be invalid")
	}
	inf := Key{Source: "x.png"}.WithWarp(Quad{{0, 0}, {math.Inf(1), 0}, {1, 1}, {0, 1}})
	if inf.Valid() {
		t.Error("key with an infinite warp corner should be invalid")
	}
}

func TestFromImageRoundTrip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 80), G: uint8(y * 200), B: uint8(x + y), A: 255})
		}
	}

	buf := FromImage(src)
	if buf.Width != 3 || buf.Height != 2 {
		t.Fatalf("size = %dx%d, want 3x2", buf.Width, buf.Height)
	}

	back := buf.NRGBA()
	for i := range src.Pix {
		if src.Pix[i] != back.Pix[i] {
			t.Fatalf("pixel byte %d = %d, want %d", i, back.Pix[i], src.Pix[i])
		}
	}

	rgb := buf.RGB8()
	if rgb.SizeBytes() != 3*2*3 {
		t.Errorf("RGB8 size = %d, want 18", rgb.SizeBytes())
	}
	if c := rgb.At(2, 1).(color.NRGBA); c.R != 160 || c.G != 200 || c.B != 3 {
		t.Errorf("RGB8 At(2,1) = %v", c)
	}
}

func TestFromImageNonNRGBA(t *testing.T) {
	src := image.NewGray(image.Rect(5, 5, 7, 6))
	src.SetGray(5, 5, color.Gray{Y: 51})

	buf := FromImage(src)
	if buf.Width != 2 || buf.Height != 1 {
		t.Fatalf("size = %dx%d, want 2x1", buf.Width, buf.Height)
	}
	r, g, b := buf.At(0, 0)
	if r != 0.2 || g != 0.2 || b != 0.2 {
		t.Errorf("At(0,0) = %v %v %v, want 0.2", r, g, b)
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		in   float32
		want uint8
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 128},
		{127.0 / 255, 127},
		{1, 255},
		{3, 255},
	}

	for _, tt := range tests {
		if got := quantize(tt.in); got != tt.want {
			t.Errorf("quantize(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRGB8Equal(t *testing.T) {
	a := NewRGB8(2, 2)
	b := NewRGB8(2, 2)
	if !a.Equal(b) {
		t.Error("blank images should be equal")
	}
	b.Pix[5] = 1
	if a.Equal(b) {
		t.Error("images with different pixels should differ")
	}
	if a.Equal(NewRGB8(2, 1)) {
		t.Error("images with different sizes should differ")
	}
}

func TestParseQuad(t *testing.T) {
	tests := []struct {
		in        string
		want      Quad
		wantErr   bool
		nonFinite bool
	}{
		{in: "0,0 100,0 100,50 0,50", want: IdentityQuad(100, 50)},
		{in: "1.5,2;3,4;5,6;7,8", want: Quad{{1.5, 2}, {3, 4}, {5, 6}, {7, 8}}},
		{in: "0,0 1,0 1,1", wantErr: true},
		{in: "0,0 1,0 1,1 0;1", wantErr: true},
		{in: "0,0 1,0 1,x 0,1", wantErr: true},
		{in: "NaN,0 10,0 10,10 0,10", wantErr: true, nonFinite: true},
		{in: "0,0 +Inf,0 10,10 0,10", wantErr: true, nonFinite: true},
		{in: "0,0 10,0 10,-inf 0,10", wantErr: true, nonFinite: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuad(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseQuad(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.nonFinite && !errors.Is(err, ErrNonFiniteQuad) {
				t.Errorf("ParseQuad(%q) error = %v, want ErrNonFiniteQuad", tt.in, err)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseQuad(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
