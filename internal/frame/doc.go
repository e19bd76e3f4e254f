// Package frame defines the value types shared by the frame pipeline:
// the Key that identifies one rendered frame, resolution tiers, warp quads,
// the float32 working buffer and the 8-bit display image.
//
// Keys are comparable and are used directly as map keys by the frame cache
// and the stage cache. Two keys are equal only when every rendering
// parameter matches, so changing the LUT or the warp quad produces a
// distinct cache entry.
package frame
