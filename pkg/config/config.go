package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all engine settings for hookrun. Hook declarations live in
// the manifest (.hookrun.yaml); this covers how the engine runs them.
type Config struct {
	Run   RunConfig   `mapstructure:"run"`
	Cache CacheConfig `mapstructure:"cache"`
}

// RunConfig holds execution settings
type RunConfig struct {
	Jobs               int           `mapstructure:"jobs"`                // explicit worker count; 0 = derive from cores
	ConcurrencyPercent int           `mapstructure:"concurrency_percent"` // percentage of cores when jobs == 0
	Timeout            time.Duration `mapstructure:"timeout"`             // per-invocation wall-clock ceiling
	FixLoopLimit       int           `mapstructure:"fix_loop_limit"`      // reconciliation iterations before giving up
	AutoStage          bool          `mapstructure:"auto_stage"`          // re-stage files touched by fixers (staged scope only)
	OutputLimit        int           `mapstructure:"output_limit"`        // bytes of captured output kept per hook
}

// CacheConfig holds environment cache settings
type CacheConfig struct {
	Dir string `mapstructure:"dir"`
}

var defaultConfig = Config{
	Run: RunConfig{
		Jobs:               0,
		ConcurrencyPercent: 50,
		Timeout:            parseDurationDefault("2m"),
		FixLoopLimit:       3,
		AutoStage:          true,
		OutputLimit:        64 * 1024,
	},
	Cache: CacheConfig{
		Dir: "", // resolved to ~/.hookrun/cache at load time
	},
}

// LoadConfig loads configuration from defaults, an optional settings file
// (hookrun.yaml in the working directory or ~/.hookrun), and HOOKRUN_*
// environment variables, in increasing precedence.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("run.jobs", defaultConfig.Run.Jobs)
	v.SetDefault("run.concurrency_percent", defaultConfig.Run.ConcurrencyPercent)
	v.SetDefault("run.timeout", defaultConfig.Run.Timeout)
	v.SetDefault("run.fix_loop_limit", defaultConfig.Run.FixLoopLimit)
	v.SetDefault("run.auto_stage", defaultConfig.Run.AutoStage)
	v.SetDefault("run.output_limit", defaultConfig.Run.OutputLimit)
	v.SetDefault("cache.dir", defaultConfig.Cache.Dir)

	v.SetConfigName("hookrun")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".hookrun"))
	}

	v.SetEnvPrefix("HOOKRUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing settings file is fine; anything else is a real problem
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read settings file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = DefaultCacheDir()
	}
	return &cfg, nil
}

// DefaultCacheDir returns the default environment cache location.
func DefaultCacheDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".hookrun", "cache")
	}
	return filepath.Join(os.TempDir(), "hookrun-cache")
}

// Workers resolves the effective worker-pool size from the run settings.
func (c *RunConfig) Workers() int {
	if c.Jobs > 0 {
		return c.Jobs
	}
	percent := c.ConcurrencyPercent
	if percent <= 0 {
		percent = 50
	}
	workers := (runtime.NumCPU() * percent) / 100
	if workers < 1 {
		workers = 1
	}
	return workers
}

func parseDurationDefault(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 2 * time.Minute
	}
	return d
}
