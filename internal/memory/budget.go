package memory

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"frame-viewer/internal/logging"
)

// DefaultCacheBudget is the frame cache budget used when none is configured.
const DefaultCacheBudget int64 = 3000 * humanize.MiByte

// DefaultLUTBudget bounds the memory held by parsed LUT grids.
const DefaultLUTBudget int64 = 256 * humanize.MiByte

// MaxCacheShare is the largest fraction of GOMEMLIMIT the frame cache may
// claim. The rest is left for decode buffers and intermediate stages.
const MaxCacheShare = 0.75

// ParseBytes parses a byte size. Bare numbers are bytes; suffixed values
// accept both SI ("2GB") and IEC ("3000MiB") units.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative byte size %q", s)
		}
		return n, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("byte size %q overflows", s)
	}
	return int64(n), nil
}

// FormatBytes formats bytes into a human-readable IEC string
func FormatBytes(b int64) string {
	if b < 0 {
		return "-" + humanize.IBytes(uint64(-b))
	}
	return humanize.IBytes(uint64(b))
}

// FitCacheBudget caps a requested frame cache budget to MaxCacheShare of the
// Go memory limit, when one is configured.
func FitCacheBudget(requested int64, cfg ConfigResult) int64 {
	if !cfg.Configured || cfg.GoMemLimit <= 0 {
		return requested
	}
	ceiling := int64(float64(cfg.GoMemLimit) * MaxCacheShare)
	if requested > ceiling {
		logging.Warn("Frame cache budget %s exceeds %.0f%% of GOMEMLIMIT %s, using %s",
			FormatBytes(requested), MaxCacheShare*100, FormatBytes(cfg.GoMemLimit), FormatBytes(ceiling))
		return ceiling
	}
	return requested
}
