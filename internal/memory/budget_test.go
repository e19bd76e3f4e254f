package memory

import "testing"

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"1024", 1024, false},
		{" 0 ", 0, false},
		{"3000MiB", 3000 * 1024 * 1024, false},
		{"3000MB", 3000 * 1000 * 1000, false},
		{"2GiB", 2 << 30, false},
		{"512 KiB", 512 << 10, false},
		{"", 0, true},
		{"-5", 0, true},
		{"lots", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBytes(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBytes(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input int64
		want  string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{3000 * 1024 * 1024, "2.9 GiB"},
		{-2048, "-2.0 KiB"},
	}

	for _, tt := range tests {
		if got := FormatBytes(tt.input); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFitCacheBudget(t *testing.T) {
	tests := []struct {
		name      string
		requested int64
		cfg       ConfigResult
		want      int64
	}{
		{"no limit", 5000, ConfigResult{}, 5000},
		{"under ceiling", 500, ConfigResult{Configured: true, GoMemLimit: 1000}, 500},
		{"over ceiling", 900, ConfigResult{Configured: true, GoMemLimit: 1000}, 750},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FitCacheBudget(tt.requested, tt.cfg); got != tt.want {
				t.Errorf("FitCacheBudget() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDefaultCacheBudget(t *testing.T) {
	if DefaultCacheBudget != 3000<<20 {
		t.Errorf("DefaultCacheBudget = %d, want 3000 MiB", DefaultCacheBudget)
	}
}
