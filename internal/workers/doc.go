/*
Package workers sizes and runs the data-parallel part of per-pixel stages.

# Overview

When running in containers the number of usable CPUs may be limited by cgroup
constraints. Go 1.19+ sets GOMAXPROCS from the container CPU limit, while
runtime.NumCPU() still reports the host's CPUs. Count and ForCPU use
GOMAXPROCS so pixel work respects container limits.

# Usage

	n := workers.ForCPU(8)
	workers.Bands(img.Height, n, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			// process row y
		}
	})

Bands only splits work inside one frame. The preload worker still evaluates a
single frame at a time.

# Environment Variable Override

PIXEL_WORKERS pins the worker count (capped by the limit argument). Setting it
to 1 runs every stage on the evaluating goroutine, which is handy when
profiling.
*/
package workers
