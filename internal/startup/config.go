package startup

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"frame-viewer/internal/frame"
	"frame-viewer/internal/logging"
	"frame-viewer/internal/memory"
)

// Configuration keys. Each is also read from the upper-cased environment
// variable of the same name.
const (
	KeyCacheBudget    = "cache_budget"
	KeyLUTCacheBudget = "lut_cache_budget"
	KeyTier           = "resolution_tier"
	KeyFPS            = "fps"
	KeyLUTPath        = "lut_path"
	KeyLUTEnabled     = "lut_enabled"
	KeyInPoint        = "in_point"
	KeyOutPoint       = "out_point"
	KeyMetricsAddr    = "metrics_addr"
	KeyVipsEnabled    = "vips_enabled"
	KeyLogLevel       = "log_level"
)

// Config holds all application configuration
type Config struct {
	CacheBudget    int64
	LUTCacheBudget int64
	Tier           frame.Tier
	FPS            float64
	LUTPath        string
	LUTEnabled     bool
	InPoint        int
	OutPoint       int
	MetricsAddr    string
	VipsEnabled    bool
	LogLevel       string

	// ConfigFile is the file values were read from, empty when none.
	ConfigFile string
	Memory     memory.ConfigResult
}

// HasRange reports whether in/out points were configured.
func (c *Config) HasRange() bool {
	return c.InPoint != 0 || c.OutPoint != 0
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyCacheBudget, memory.FormatBytes(memory.DefaultCacheBudget))
	v.SetDefault(KeyLUTCacheBudget, memory.FormatBytes(memory.DefaultLUTBudget))
	v.SetDefault(KeyTier, frame.TierFull.String())
	v.SetDefault(KeyFPS, 0.0)
	v.SetDefault(KeyLUTPath, "")
	v.SetDefault(KeyLUTEnabled, true)
	v.SetDefault(KeyInPoint, 0)
	v.SetDefault(KeyOutPoint, 0)
	v.SetDefault(KeyMetricsAddr, "")
	v.SetDefault(KeyVipsEnabled, true)
	v.SetDefault(KeyLogLevel, "")
}

// LoadConfig resolves configuration from defaults, the optional config file
// set on v, the environment and any flags bound to v, in increasing order of
// precedence.
func LoadConfig(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
		cfg.ConfigFile, _ = filepath.Abs(v.ConfigFileUsed())
	}

	if lvl := v.GetString(KeyLogLevel); lvl != "" {
		level, err := logging.ParseLevel(lvl)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", strings.ToUpper(KeyLogLevel), err)
		}
		logging.SetLevel(level)
		cfg.LogLevel = lvl
	}

	var err error
	if cfg.CacheBudget, err = memory.ParseBytes(v.GetString(KeyCacheBudget)); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", strings.ToUpper(KeyCacheBudget), err)
	}
	if cfg.LUTCacheBudget, err = memory.ParseBytes(v.GetString(KeyLUTCacheBudget)); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", strings.ToUpper(KeyLUTCacheBudget), err)
	}
	if cfg.LUTCacheBudget <= 0 {
		return nil, fmt.Errorf("invalid %s: must be positive", strings.ToUpper(KeyLUTCacheBudget))
	}
	if cfg.Tier, err = frame.ParseTier(v.GetString(KeyTier)); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", strings.ToUpper(KeyTier), err)
	}

	cfg.FPS = v.GetFloat64(KeyFPS)
	if cfg.FPS < 0 {
		logging.Warn("Ignoring negative FPS %v", cfg.FPS)
		cfg.FPS = 0
	}
	cfg.LUTPath = v.GetString(KeyLUTPath)
	cfg.LUTEnabled = v.GetBool(KeyLUTEnabled)
	cfg.InPoint = v.GetInt(KeyInPoint)
	cfg.OutPoint = v.GetInt(KeyOutPoint)
	if cfg.InPoint != 0 && cfg.OutPoint != 0 && cfg.OutPoint < cfg.InPoint {
		return nil, fmt.Errorf("out point %d precedes in point %d", cfg.OutPoint, cfg.InPoint)
	}
	cfg.MetricsAddr = v.GetString(KeyMetricsAddr)
	cfg.VipsEnabled = v.GetBool(KeyVipsEnabled)

	cfg.Memory = memory.ConfigureFromEnv()
	cfg.CacheBudget = memory.FitCacheBudget(cfg.CacheBudget, cfg.Memory)

	return cfg, nil
}

// LogConfig prints the resolved configuration.
func LogConfig(cfg *Config) {
	section("CONFIGURATION")
	if cfg.ConfigFile != "" {
		logging.Info("  Config file:        %s", cfg.ConfigFile)
	}
	logging.Info("  CACHE_BUDGET:       %s", memory.FormatBytes(cfg.CacheBudget))
	logging.Info("  LUT_CACHE_BUDGET:   %s", memory.FormatBytes(cfg.LUTCacheBudget))
	logging.Info("  RESOLUTION_TIER:    %s", cfg.Tier)
	if cfg.FPS > 0 {
		logging.Info("  FPS:                %.3f", cfg.FPS)
	} else {
		logging.Info("  FPS:                source rate")
	}
	if cfg.LUTPath != "" {
		logging.Info("  LUT_PATH:           %s (%s)", cfg.LUTPath, enabledString(cfg.LUTEnabled))
	}
	if cfg.HasRange() {
		logging.Info("  IN/OUT:             %d-%d", cfg.InPoint, cfg.OutPoint)
	}
	if cfg.MetricsAddr != "" {
		logging.Info("  METRICS_ADDR:       %s", cfg.MetricsAddr)
	}
	logging.Info("  VIPS_ENABLED:       %v", cfg.VipsEnabled)
	logging.Info("  LOG_LEVEL:          %s", logging.GetLevel())
	logging.Info("")
	LogMemoryConfig(cfg.Memory)
}

// LogMemoryConfig logs the GOMEMLIMIT configuration.
func LogMemoryConfig(mc memory.ConfigResult) {
	if !mc.Configured {
		logging.Debug("  Memory limit: not configured")
		return
	}
	switch mc.Source {
	case memory.SourceMemoryLimit, memory.SourceCgroup:
		logging.Info("  Memory limit: %s of %s container limit (%.0f%%, %s)",
			memory.FormatBytes(mc.GoMemLimit), memory.FormatBytes(mc.ContainerLimit), mc.Ratio*100, mc.Source)
	default:
		logging.Info("  Memory limit: %s (from %s)", memory.FormatBytes(mc.GoMemLimit), mc.Source)
	}
}
