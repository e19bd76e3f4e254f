/*
Package lut parses Adobe/Resolve .cube color lookup tables and applies them to
frame buffers.

# Format

	# comment
	TITLE "Film Look"
	DOMAIN_MIN 0 0 0
	DOMAIN_MAX 1 1 1
	LUT_3D_SIZE 33
	0.0 0.0 0.0
	...

A table declares either LUT_1D_SIZE n (n rows, one curve per channel) or
LUT_3D_SIZE n (n³ rows). 3D rows are stored with red varying fastest, so the
node for grid coordinate (r, g, b) lives at row r + g*n + b*n².

# Sampling

Inputs are clamped into [DOMAIN_MIN, DOMAIN_MAX] and scaled to grid units.
1D tables interpolate linearly per channel; 3D tables interpolate trilinearly
between the eight surrounding nodes.

# Registry

Registry keeps parsed tables keyed by absolute path in a cost-bounded
ristretto cache (cost = grid bytes). Load parses synchronously on the caller's
goroutine, so a malformed file is reported where the LUT was chosen rather
than inside the render loop.
*/
package lut
