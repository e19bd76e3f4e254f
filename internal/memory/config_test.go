package memory

import (
	"math"
	"os"
	"path/filepath"
	"runtime/debug"
	"testing"
)

// withCgroupFiles points cgroup detection at paths for the test.
func withCgroupFiles(t *testing.T, paths ...string) {
	t.Helper()
	saved := cgroupLimitFiles
	cgroupLimitFiles = paths
	t.Cleanup(func() { cgroupLimitFiles = saved })
}

// restoreMemoryLimit resets the runtime memory limit after a test changes it.
func restoreMemoryLimit(t *testing.T) {
	t.Helper()
	original := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(original) })
}

// scaled mirrors the runtime float arithmetic used by ConfigureFromEnv.
func scaled(limit int64, ratio float64) int64 {
	return int64(float64(limit) * ratio)
}

func TestConfigureFromEnvNoLimit(t *testing.T) {
	restoreMemoryLimit(t)
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "")

	result := ConfigureFromEnv()
	if result.Configured {
		t.Error("Configured should be false without MEMORY_LIMIT")
	}
	if result.Source != "none" {
		t.Errorf("Source = %q, want none", result.Source)
	}
}

func TestConfigureFromEnvMemoryLimit(t *testing.T) {
	tests := []struct {
		name      string
		limit     string
		ratio     string
		wantLimit int64
		wantRatio float64
	}{
		{"raw bytes, default ratio", "1073741824", "", scaled(1<<30, DefaultMemoryRatio), DefaultMemoryRatio},
		{"IEC size, custom ratio", "2GiB", "0.5", 1 << 30, 0.5},
		{"ratio out of range", "1000000", "1.5", scaled(1000000, DefaultMemoryRatio), DefaultMemoryRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreMemoryLimit(t)
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("MEMORY_LIMIT", tt.limit)
			t.Setenv("MEMORY_RATIO", tt.ratio)

			result := ConfigureFromEnv()
			if !result.Configured || result.Source != SourceMemoryLimit {
				t.Fatalf("result = %+v, want configured from MEMORY_LIMIT", result)
			}
			if result.GoMemLimit != tt.wantLimit {
				t.Errorf("GoMemLimit = %d, want %d", result.GoMemLimit, tt.wantLimit)
			}
			if math.Abs(result.Ratio-tt.wantRatio) > 1e-9 {
				t.Errorf("Ratio = %v, want %v", result.Ratio, tt.wantRatio)
			}
			if got := debug.SetMemoryLimit(-1); got != tt.wantLimit {
				t.Errorf("runtime limit = %d, want %d", got, tt.wantLimit)
			}
		})
	}
}

func TestConfigureFromEnvInvalidLimit(t *testing.T) {
	restoreMemoryLimit(t)
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "plenty")

	if result := ConfigureFromEnv(); result.Configured {
		t.Errorf("result = %+v, want unconfigured", result)
	}
}

func TestConfigureFromCgroup(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int64
	}{
		{"v2 limit", "536870912\n", scaled(512<<20, DefaultMemoryRatio)},
		{"v2 unlimited", "max\n", 0},
		{"v1 unlimited sentinel", "9223372036854771712\n", 0},
		{"garbage", "lots\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreMemoryLimit(t)
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("MEMORY_LIMIT", "auto")
			t.Setenv("MEMORY_RATIO", "")

			path := filepath.Join(t.TempDir(), "memory.max")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			withCgroupFiles(t, path)

			result := ConfigureFromEnv()
			if tt.want == 0 {
				if result.Configured || result.Source != SourceNone {
					t.Errorf("result = %+v, want unconfigured", result)
				}
				return
			}
			if result.Source != SourceCgroup || result.GoMemLimit != tt.want {
				t.Errorf("result = %+v, want %d from cgroup", result, tt.want)
			}
		})
	}
}

func TestMemoryLimitBeatsCgroup(t *testing.T) {
	restoreMemoryLimit(t)
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "1GiB")
	t.Setenv("MEMORY_RATIO", "0.5")

	path := filepath.Join(t.TempDir(), "memory.max")
	if err := os.WriteFile(path, []byte("1024\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	withCgroupFiles(t, path)

	if result := ConfigureFromEnv(); result.Source != SourceMemoryLimit || result.GoMemLimit != 1<<29 {
		t.Errorf("result = %+v", result)
	}
}

func TestConfigureAutoWithoutCgroup(t *testing.T) {
	restoreMemoryLimit(t)
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "auto")
	withCgroupFiles(t, filepath.Join(t.TempDir(), "missing"))

	if result := ConfigureFromEnv(); result.Configured {
		t.Errorf("result = %+v, want unconfigured", result)
	}
}
