package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"testing"

	"frame-viewer/internal/frame"
	"frame-viewer/internal/lut"
	"frame-viewer/internal/media"
)

// fakeDecoder renders a deterministic pattern per frame and counts reads.
type fakeDecoder struct {
	meta  media.Metadata
	reads int
	fail  error
}

func newFakeDecoder(w, h, first, last int) *fakeDecoder {
	return &fakeDecoder{meta: media.Metadata{FirstFrame: first, LastFrame: last, Width: w, Height: h}}
}

func (d *fakeDecoder) Metadata() media.Metadata { return d.meta }

func (d *fakeDecoder) Read(index int) (image.Image, error) {
	d.reads++
	if d.fail != nil {
		return nil, d.fail
	}
	img := image.NewNRGBA(image.Rect(0, 0, d.meta.Width, d.meta.Height))
	for y := 0; y < d.meta.Height; y++ {
		for x := 0; x < d.meta.Width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x*5 + index),
				G: uint8(y*3 + index*2),
				B: uint8(x + y),
				A: 0xff,
			})
		}
	}
	return img, nil
}

func (d *fakeDecoder) Close() error { return nil }

type fakeSources map[string]*fakeDecoder

func (s fakeSources) Decoder(path string) (media.Decoder, error) {
	d, ok := s[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", media.ErrNotFound, path)
	}
	return d, nil
}

type fakeLUTs map[string]*lut.Table

func (l fakeLUTs) Table(path string) (*lut.Table, error) {
	t, ok := l[path]
	if !ok {
		return nil, fmt.Errorf("no table %s", path)
	}
	return t, nil
}

func invertTable(t *testing.T) *lut.Table {
	t.Helper()
	tab, err := lut.Parse(strings.NewReader("LUT_1D_SIZE 2\n1 1 1\n0 0 0\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return tab
}

func testKey(index int) frame.Key {
	return frame.Key{Source: "clip", Index: index}
}

func TestEvaluateIdempotent(t *testing.T) {
	key := testKey(3)
	key.Tier = frame.TierHalf
	key.LUT = "invert"
	key = key.WithWarp(frame.Quad{{2, 1}, {60, 4}, {57, 40}, {1, 35}})

	var results []*frame.RGB8
	for i := 0; i < 2; i++ {
		p := New(fakeSources{"clip": newFakeDecoder(64, 48, 0, 9)}, fakeLUTs{"invert": invertTable(t)})
		img, err := p.Evaluate(context.Background(), key, nil)
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		results = append(results, img)
	}
	if !results[0].Equal(results[1]) {
		t.Error("two evaluations of the same key differ")
	}
}

func TestTierScaling(t *testing.T) {
	tests := []struct {
		tier         frame.Tier
		wantW, wantH int
	}{
		{frame.TierFull, 65, 33},
		{frame.TierHalf, 32, 16},
		{frame.TierQuarter, 16, 8},
	}

	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			p := New(fakeSources{"clip": newFakeDecoder(65, 33, 0, 0)}, nil)
			key := testKey(0)
			key.Tier = tt.tier
			img, err := p.Evaluate(context.Background(), key, nil)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if img.Width != tt.wantW || img.Height != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", img.Width, img.Height, tt.wantW, tt.wantH)
			}
			if len(img.Pix) != tt.wantW*tt.wantH*3 {
				t.Errorf("len(Pix) = %d, want %d", len(img.Pix), tt.wantW*tt.wantH*3)
			}
		})
	}
}

func TestResizeTooSmall(t *testing.T) {
	got := Resize(frame.NewBuffer(3, 9), 4)
	if got.Width != 0 || got.Height != 2 || len(got.Pix) != 0 {
		t.Errorf("Resize(3x9, 4) = %dx%d (%d samples), want 0x2 empty", got.Width, got.Height, len(got.Pix))
	}
}

func TestEvaluateClampsIndex(t *testing.T) {
	tests := []struct {
		name     string
		index    int
		boundary int
	}{
		{"past last", 99, 9},
		{"before first", -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(fakeSources{"clip": newFakeDecoder(16, 16, 0, 9)}, nil)
			out, err := p.Evaluate(context.Background(), testKey(tt.index), nil)
			if err != nil {
				t.Fatalf("Evaluate(%d) error = %v", tt.index, err)
			}
			want, err := p.Evaluate(context.Background(), testKey(tt.boundary), nil)
			if err != nil {
				t.Fatalf("Evaluate(%d) error = %v", tt.boundary, err)
			}
			if !out.Equal(want) {
				t.Errorf("frame %d differs from boundary frame %d", tt.index, tt.boundary)
			}
		})
	}
}

func TestEvaluateCancelsAtCheckpoints(t *testing.T) {
	for stop := 1; stop <= 4; stop++ {
		t.Run(Stage(stop-1).String(), func(t *testing.T) {
			p := New(fakeSources{"clip": newFakeDecoder(16, 16, 0, 0)}, nil)
			calls := 0
			current := func(frame.Key) bool {
				calls++
				return calls < stop
			}

			key := testKey(0).WithWarp(frame.Quad{{1, 1}, {15, 0}, {16, 16}, {0, 15}})
			img, err := p.Evaluate(context.Background(), key, current)
			if !errors.Is(err, ErrCanceled) {
				t.Fatalf("Evaluate() error = %v, want ErrCanceled", err)
			}
			if img != nil {
				t.Error("canceled evaluation returned an image")
			}
			if calls != stop {
				t.Errorf("current called %d times, want %d", calls, stop)
			}
			if got := p.StageStats().Entries; got != stop {
				t.Errorf("stages computed = %d, want %d", got, stop)
			}
		})
	}
}

func TestEvaluateContextCanceled(t *testing.T) {
	p := New(fakeSources{"clip": newFakeDecoder(8, 8, 0, 0)}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Evaluate(ctx, testKey(0), nil)
	if !errors.Is(err, ErrCanceled) || !errors.Is(err, context.Canceled) {
		t.Errorf("Evaluate() error = %v, want ErrCanceled wrapping context.Canceled", err)
	}
}

func TestStageCacheReuse(t *testing.T) {
	dec := newFakeDecoder(32, 32, 0, 9)
	p := New(fakeSources{"clip": dec}, fakeLUTs{"invert": invertTable(t)})
	ctx := context.Background()

	key := testKey(2)
	key.LUT = "invert"
	if _, err := p.Evaluate(ctx, key, nil); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	warped := key.WithWarp(frame.Quad{{0, 0}, {30, 2}, {32, 32}, {2, 30}})
	if _, err := p.Evaluate(ctx, warped, nil); err != nil {
		t.Fatalf("Evaluate(warped) error = %v", err)
	}
	st := p.StageStats()
	if dec.reads != 1 {
		t.Errorf("decoder reads = %d, want 1", dec.reads)
	}
	if st.Hits != 3 || st.Misses != 5 {
		t.Errorf("stage hits/misses = %d/%d, want 3/5", st.Hits, st.Misses)
	}

	if _, err := p.Evaluate(ctx, testKey(3), nil); err != nil {
		t.Fatalf("Evaluate(next frame) error = %v", err)
	}
	st = p.StageStats()
	if dec.reads != 2 {
		t.Errorf("decoder reads = %d, want 2", dec.reads)
	}
	if st.Index != 3 || st.Hits != 0 {
		t.Errorf("stage cache not reset for new frame: %+v", st)
	}

	p.ResetStages()
	if got := p.StageStats().Entries; got != 0 {
		t.Errorf("entries after ResetStages = %d, want 0", got)
	}
}

// reloadingLUTs resets the stage cache while the color stage is computing,
// the way a LUT reload can land mid-render.
type reloadingLUTs struct {
	p     *Pipeline
	table *lut.Table
}

func (l *reloadingLUTs) Table(string) (*lut.Table, error) {
	l.p.ResetStages()
	return l.table, nil
}

func TestResetStagesDropsInFlightResult(t *testing.T) {
	dec := newFakeDecoder(8, 8, 0, 0)
	luts := &reloadingLUTs{table: invertTable(t)}
	p := New(fakeSources{"clip": dec}, luts)
	luts.p = p

	key := testKey(0)
	key.LUT = "show.cube"
	if _, err := p.Evaluate(context.Background(), key, nil); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	// Decode and resize were cleared, the color result computed across the
	// reset was not stored. Only the warp slot written afterwards remains.
	if got := p.StageStats().Entries; got != 1 {
		t.Errorf("entries = %d, want 1", got)
	}

	if _, err := p.Evaluate(context.Background(), key, nil); err != nil {
		t.Fatalf("Evaluate() again error = %v", err)
	}
	if dec.reads != 2 {
		t.Errorf("decoder reads = %d, want 2 after reset", dec.reads)
	}
}

func TestEvaluateAppliesLUT(t *testing.T) {
	dec := newFakeDecoder(4, 4, 0, 0)
	p := New(fakeSources{"clip": dec}, fakeLUTs{"invert": invertTable(t)})

	plain, err := p.Evaluate(context.Background(), testKey(0), nil)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	key := testKey(0)
	key.LUT = "invert"
	inverted, err := p.Evaluate(context.Background(), key, nil)
	if err != nil {
		t.Fatalf("Evaluate(lut) error = %v", err)
	}

	for i := range plain.Pix {
		if int(plain.Pix[i])+int(inverted.Pix[i]) != 255 {
			t.Fatalf("sample %d: %d + %d != 255", i, plain.Pix[i], inverted.Pix[i])
		}
	}
}

func TestEvaluateErrors(t *testing.T) {
	t.Run("missing source", func(t *testing.T) {
		p := New(fakeSources{}, nil)
		_, err := p.Evaluate(context.Background(), testKey(0), nil)
		var de *media.DecodeError
		if !errors.As(err, &de) || !errors.Is(err, media.ErrNotFound) {
			t.Errorf("error = %v, want DecodeError wrapping ErrNotFound", err)
		}
	})

	t.Run("read failure", func(t *testing.T) {
		dec := newFakeDecoder(4, 4, 0, 0)
		dec.fail = errors.New("corrupt")
		p := New(fakeSources{"clip": dec}, nil)
		_, err := p.Evaluate(context.Background(), testKey(0), nil)
		var de *media.DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("error = %v, want *media.DecodeError", err)
		}
		if de.Source != "clip" || de.Index != 0 {
			t.Errorf("DecodeError = %+v", de)
		}
	})

	t.Run("missing LUT", func(t *testing.T) {
		p := New(fakeSources{"clip": newFakeDecoder(4, 4, 0, 0)}, fakeLUTs{})
		key := testKey(0)
		key.LUT = "nope"
		if _, err := p.Evaluate(context.Background(), key, nil); err == nil {
			t.Error("expected error for missing LUT")
		}
	})

	t.Run("invalid key", func(t *testing.T) {
		p := New(fakeSources{}, nil)
		if _, err := p.Evaluate(context.Background(), frame.Key{}, nil); err == nil {
			t.Error("expected error for invalid key")
		}
	})
}
