package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"frame-viewer/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The rest is left to libvips, libav and ffmpeg.
const DefaultMemoryRatio = 0.85

// Limit sources reported in ConfigResult.Source.
const (
	SourceGoMemLimit  = "GOMEMLIMIT"
	SourceMemoryLimit = "MEMORY_LIMIT"
	SourceCgroup      = "cgroup"
	SourceNone        = "none"
)

// cgroupLimitFiles are checked in order: cgroup v2, then v1.
var cgroupLimitFiles = []string{
	"/sys/fs/cgroup/memory.max",
	"/sys/fs/cgroup/memory/memory.limit_in_bytes",
}

// ConfigResult describes how GOMEMLIMIT was settled.
type ConfigResult struct {
	Configured     bool
	Source         string
	ContainerLimit int64 // bytes, 0 when unknown
	GoMemLimit     int64 // bytes, 0 when not configured
	Ratio          float64
}

// ConfigureFromEnv sets GOMEMLIMIT. An explicit GOMEMLIMIT wins; otherwise
// the container limit comes from MEMORY_LIMIT ("8GiB", raw bytes, or "auto"
// to read the cgroup), scaled by MEMORY_RATIO (default 0.85). Call it before
// the frame cache is sized.
func ConfigureFromEnv() ConfigResult {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		limit := debug.SetMemoryLimit(-1)
		if limit <= 0 || limit == math.MaxInt64 {
			return ConfigResult{Source: SourceGoMemLimit}
		}
		return ConfigResult{Configured: true, Source: SourceGoMemLimit, GoMemLimit: limit}
	}

	container, source := containerLimit()
	if container <= 0 {
		logging.Debug("No container memory limit found, leaving GOMEMLIMIT unset")
		return ConfigResult{Source: SourceNone}
	}

	ratio := ratioFromEnv()
	limit := int64(float64(container) * ratio)
	debug.SetMemoryLimit(limit)

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s from %s)",
		FormatBytes(limit), ratio*100, FormatBytes(container), source)

	return ConfigResult{
		Configured:     true,
		Source:         source,
		ContainerLimit: container,
		GoMemLimit:     limit,
		Ratio:          ratio,
	}
}

func containerLimit() (int64, string) {
	s := os.Getenv("MEMORY_LIMIT")
	switch {
	case s == "":
		return 0, SourceNone
	case strings.EqualFold(s, "auto"):
		if n := readCgroupLimit(); n > 0 {
			return n, SourceCgroup
		}
		logging.Warn("MEMORY_LIMIT=auto but no cgroup memory limit is set")
		return 0, SourceNone
	}
	n, err := ParseBytes(s)
	if err != nil {
		logging.Warn("Failed to parse MEMORY_LIMIT %q: %v", s, err)
		return 0, SourceNone
	}
	return n, SourceMemoryLimit
}

// readCgroupLimit returns 0 for "max" and for the v1 unlimited sentinel.
func readCgroupLimit() int64 {
	for _, path := range cgroupLimitFiles {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		s := strings.TrimSpace(string(raw))
		if s == "max" {
			return 0
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n <= 0 || n >= 1<<62 {
			return 0
		}
		logging.Debug("cgroup memory limit %s from %s", FormatBytes(n), path)
		return n
	}
	return 0
}

func ratioFromEnv() float64 {
	s := os.Getenv("MEMORY_RATIO")
	if s == "" {
		return DefaultMemoryRatio
	}
	r, err := strconv.ParseFloat(s, 64)
	switch {
	case err != nil:
		logging.Warn("Failed to parse MEMORY_RATIO %q: %v, using %.2f", s, err, DefaultMemoryRatio)
	case r <= 0 || r > 1:
		logging.Warn("MEMORY_RATIO %q out of range (0.0-1.0), using %.2f", s, DefaultMemoryRatio)
	default:
		return r
	}
	return DefaultMemoryRatio
}
