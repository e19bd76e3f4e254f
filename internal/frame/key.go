package frame

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tier is a resolution tier. Each tier downsamples by an integer factor.
type Tier int

const (
	// TierFull renders at the source resolution
	TierFull Tier = iota
	// TierHalf renders at half the source resolution
	TierHalf
	// TierQuarter renders at a quarter of the source resolution
	TierQuarter
)

// Factor returns the integer downsample factor for the tier (1, 2 or 4).
func (t Tier) Factor() int {
	switch t {
	case TierHalf:
		return 2
	case TierQuarter:
		return 4
	default:
		return 1
	}
}

// String returns the string representation of a tier
func (t Tier) String() string {
	switch t {
	case TierFull:
		return "full"
	case TierHalf:
		return "half"
	case TierQuarter:
		return "quarter"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// ParseTier parses "full", "half" or "quarter" (case-insensitive). The
// factor spellings "1", "2" and "4" are accepted as well.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full", "1", "":
		return TierFull, nil
	case "half", "2":
		return TierHalf, nil
	case "quarter", "4":
		return TierQuarter, nil
	}
	return TierFull, fmt.Errorf("unknown resolution tier %q", s)
}

// Point is a position in pixel space.
type Point struct {
	X, Y float64
}

// Quad is a destination quadrilateral for a perspective warp, ordered
// top-left, top-right, bottom-right, bottom-left.
type Quad [4]Point

// ErrNonFiniteQuad is returned for a quad with a NaN or infinite corner.
// Such a quad would make a Key that never compares equal to itself.
var ErrNonFiniteQuad = errors.New("quad corners must be finite")

// Finite reports whether every coordinate is a finite number.
func (q Quad) Finite() bool {
	for _, p := range q {
		if math.IsNaN(p.X) || math.IsInf(p.X, 0) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			return false
		}
	}
	return true
}

// IdentityQuad returns the quad that maps a w x h image onto itself.
func IdentityQuad(w, h int) Quad {
	fw, fh := float64(w), float64(h)
	return Quad{{0, 0}, {fw, 0}, {fw, fh}, {0, fh}}
}

// ParseQuad parses four "x,y" corners separated by spaces or semicolons,
// e.g. "0,0 1920,40 1900,1080 10,1060".
func ParseQuad(s string) (Quad, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ';' || r == '\t'
	})
	if len(fields) != 4 {
		return Quad{}, fmt.Errorf("quad needs 4 corners, got %d", len(fields))
	}
	var q Quad
	for i, f := range fields {
		xs, ys, ok := strings.Cut(f, ",")
		if !ok {
			return Quad{}, fmt.Errorf("corner %q is not x,y", f)
		}
		x, err := strconv.ParseFloat(xs, 64)
		if err != nil {
			return Quad{}, fmt.Errorf("corner %q: %w", f, err)
		}
		y, err := strconv.ParseFloat(ys, 64)
		if err != nil {
			return Quad{}, fmt.Errorf("corner %q: %w", f, err)
		}
		q[i] = Point{X: x, Y: y}
	}
	if !q.Finite() {
		return Quad{}, fmt.Errorf("%w: %q", ErrNonFiniteQuad, s)
	}
	return q, nil
}

// Key identifies one rendered frame. It is a comparable value and can be
// used directly as a map key.
//
// An empty Source is the invalid sentinel: requests carrying it are ignored.
type Key struct {
	Source  string
	Index   int
	Tier    Tier
	LUT     string
	Warp    Quad
	HasWarp bool
}

// Valid reports whether the key names a source and any warp is finite.
func (k Key) Valid() bool {
	return k.Source != "" && (!k.HasWarp || k.Warp.Finite())
}

// WithWarp returns a copy of k carrying the given warp quad.
func (k Key) WithWarp(q Quad) Key {
	k.Warp = q
	k.HasWarp = true
	return k
}

// DecodeKey is the prefix of k that determines the decode stage.
func (k Key) DecodeKey() Key {
	return Key{Source: k.Source, Index: k.Index}
}

// ResizeKey is the prefix of k that determines the resize stage.
func (k Key) ResizeKey() Key {
	return Key{Source: k.Source, Index: k.Index, Tier: k.Tier}
}

// ColorKey is the prefix of k that determines the color transform stage.
func (k Key) ColorKey() Key {
	return Key{Source: k.Source, Index: k.Index, Tier: k.Tier, LUT: k.LUT}
}

// String renders the key for logs.
func (k Key) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s#%d@%s", k.Source, k.Index, k.Tier)
	if k.LUT != "" {
		fmt.Fprintf(&b, " lut=%s", k.LUT)
	}
	if k.HasWarp {
		fmt.Fprintf(&b, " warp=%v", k.Warp)
	}
	return b.String()
}
