package lut

import (
	"frame-viewer/internal/frame"
	"frame-viewer/internal/workers"
)

// gridCoord maps a sample on channel c into continuous grid units and
// returns the lower node, the upper node and the blend weight.
func (t *Table) gridCoord(v float32, c int) (i0, i1 int, f float32) {
	lo, hi := t.DomainMin[c], t.DomainMax[c]
	if v < lo {
		v = lo
	} else if v > hi {
		v = hi
	} else if v != v {
		v = lo
	}
	x := (v - lo) / (hi - lo) * float32(t.Size-1)
	i0 = int(x)
	if i0 >= t.Size-1 {
		return t.Size - 1, t.Size - 1, 0
	}
	return i0, i0 + 1, x - float32(i0)
}

// Sample looks up a single color.
func (t *Table) Sample(r, g, b float32) (float32, float32, float32) {
	if t.Kind == OneD {
		return t.sample1D(r, 0), t.sample1D(g, 1), t.sample1D(b, 2)
	}
	return t.sample3D(r, g, b)
}

func (t *Table) sample1D(v float32, c int) float32 {
	i0, i1, f := t.gridCoord(v, c)
	a := t.Grid[i0*3+c]
	b := t.Grid[i1*3+c]
	return a + (b-a)*f
}

func (t *Table) sample3D(r, g, b float32) (float32, float32, float32) {
	r0, r1, fr := t.gridCoord(r, 0)
	g0, g1, fg := t.gridCoord(g, 1)
	b0, b1, fb := t.gridCoord(b, 2)

	n := t.Size
	node := func(ri, gi, bi int) []float32 {
		i := (ri + gi*n + bi*n*n) * 3
		return t.Grid[i : i+3]
	}

	c000 := node(r0, g0, b0)
	c100 := node(r1, g0, b0)
	c010 := node(r0, g1, b0)
	c110 := node(r1, g1, b0)
	c001 := node(r0, g0, b1)
	c101 := node(r1, g0, b1)
	c011 := node(r0, g1, b1)
	c111 := node(r1, g1, b1)

	var out [3]float32
	for c := 0; c < 3; c++ {
		x00 := c000[c] + (c100[c]-c000[c])*fr
		x10 := c010[c] + (c110[c]-c010[c])*fr
		x01 := c001[c] + (c101[c]-c001[c])*fr
		x11 := c011[c] + (c111[c]-c011[c])*fr
		y0 := x00 + (x10-x00)*fg
		y1 := x01 + (x11-x01)*fg
		out[c] = y0 + (y1-y0)*fb
	}
	return out[0], out[1], out[2]
}

// Apply maps every pixel of src through the table into a new buffer.
func (t *Table) Apply(src *frame.Buffer) *frame.Buffer {
	dst := frame.NewBuffer(src.Width, src.Height)
	rowLen := src.Width * 3

	workers.Bands(src.Height, workers.ForCPU(0), func(y0, y1 int) {
		for i := y0 * rowLen; i < y1*rowLen; i += 3 {
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = t.Sample(src.Pix[i], src.Pix[i+1], src.Pix[i+2])
		}
	})
	return dst
}
