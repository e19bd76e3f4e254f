package workers

import (
	"runtime"
	"sync"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv(EnvOverride, "")

	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{
			name:       "CPU-bound task (1.0x multiplier)",
			multiplier: 1.0,
			limit:      0,
			minExpect:  1,
			maxExpect:  availableCPU,
		},
		{
			name:       "I/O-bound task (2.0x multiplier)",
			multiplier: 2.0,
			limit:      0,
			minExpect:  1,
			maxExpect:  availableCPU * 2,
		},
		{
			name:       "With limit lower than calculated",
			multiplier: 2.0,
			limit:      2,
			minExpect:  1,
			maxExpect:  2,
		},
		{
			name:       "Very low multiplier",
			multiplier: 0.1,
			limit:      0,
			minExpect:  1,
			maxExpect:  max(1, int(float64(availableCPU)*0.1)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)

			if got < tt.minExpect {
				t.Errorf("Count(%v, %d) = %d, expected >= %d", tt.multiplier, tt.limit, got, tt.minExpect)
			}
			if got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, expected <= %d", tt.multiplier, tt.limit, got, tt.maxExpect)
			}
		})
	}
}

func TestCountWithEnvOverride(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		limit    int
		expected int
	}{
		{name: "Valid override", envValue: "8", limit: 0, expected: 8},
		{name: "Override with limit", envValue: "20", limit: 10, expected: 10},
		{name: "Override below limit", envValue: "5", limit: 10, expected: 5},
		{name: "Invalid override (non-numeric)", envValue: "invalid", limit: 0, expected: -1},
		{name: "Invalid override (zero)", envValue: "0", limit: 0, expected: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvOverride, tt.envValue)

			got := Count(1.0, tt.limit)
			if tt.expected < 0 {
				// Should fall back to default calculation
				if got < 1 {
					t.Errorf("Count with invalid override should return at least 1, got %d", got)
				}
				return
			}
			if got != tt.expected {
				t.Errorf("Count(1.0, %d) with %s=%s = %d, want %d", tt.limit, EnvOverride, tt.envValue, got, tt.expected)
			}
		})
	}
}

func TestBandsCoversEveryRowOnce(t *testing.T) {
	tests := []struct {
		name   string
		height int
		n      int
	}{
		{"single worker", 100, 1},
		{"even split", 128, 4},
		{"uneven split", 101, 3},
		{"more workers than bands", 20, 8},
		{"short image", 5, 4},
		{"empty", 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mu sync.Mutex
			seen := make([]int, tt.height)
			Bands(tt.height, tt.n, func(y0, y1 int) {
				mu.Lock()
				defer mu.Unlock()
				for y := y0; y < y1; y++ {
					seen[y]++
				}
			})
			for y, c := range seen {
				if c != 1 {
					t.Fatalf("row %d visited %d times", y, c)
				}
			}
		})
	}
}

func TestBandsRespectsWorkerCount(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	Bands(1000, 4, func(_, _ int) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
}
