package workers

import (
	"os"
	"runtime"
	"strconv"
	"sync"
)

// EnvOverride names the environment variable that pins the worker count.
const EnvOverride = "PIXEL_WORKERS"

// minBandRows keeps bands large enough that goroutine startup stays
// negligible next to the per-pixel work.
const minBandRows = 16

// Count returns the optimal number of workers for a given task type.
// It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//
// The limit parameter caps the worker count to prevent resource exhaustion.
// Use 0 for no limit.
//
// Can be overridden with the PIXEL_WORKERS environment variable.
func Count(multiplier float64, limit int) int {
	// Check for manual override first
	if override := os.Getenv(EnvOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
// The limit parameter caps the maximum number of workers.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU).
// The limit parameter caps the maximum number of workers.
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// Bands splits rows [0, height) into at most n contiguous bands and calls
// fn(y0, y1) for each band concurrently, returning once all calls are done.
// Bands never overlap, so fn may write its rows of a shared buffer without
// locking. With n <= 1 or a short image, fn runs once on the caller's
// goroutine.
func Bands(height, n int, fn func(y0, y1 int)) {
	if height <= 0 {
		return
	}
	if limit := height / minBandRows; n > limit {
		n = limit
	}
	if n <= 1 {
		fn(0, height)
		return
	}

	rows := (height + n - 1) / n
	var wg sync.WaitGroup
	for y0 := 0; y0 < height; y0 += rows {
		y1 := y0 + rows
		if y1 > height {
			y1 = height
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			fn(y0, y1)
		}(y0, y1)
	}
	wg.Wait()
}
