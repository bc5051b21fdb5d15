package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/newthinker/quarterly/internal/core"
)

type Config struct {
	Server     ServerConfig               `mapstructure:"server"`
	Collectors map[string]CollectorConfig `mapstructure:"collectors"`
	Reconcile  ReconcileConfig            `mapstructure:"reconcile"`
	Calendar   CalendarConfig             `mapstructure:"calendar"`
	Cache      CacheConfig                `mapstructure:"cache"`
	Archive    ArchiveConfig              `mapstructure:"archive"`
	Metrics    MetricsConfig              `mapstructure:"metrics"`
	Sectors    map[string]string          `mapstructure:"sectors"`
	Log        LogConfig                  `mapstructure:"log"`
}

type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
	// SourceTimeout bounds each provider call made while serving a request
	SourceTimeout time.Duration `mapstructure:"source_timeout"`
}

type CollectorConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Priority  int           `mapstructure:"priority"`
}

// ReconcileConfig holds the merge tolerances
type ReconcileConfig struct {
	EPSDisplay         int     `mapstructure:"eps_display"`
	RevenueDisplay     int     `mapstructure:"revenue_display"`
	WindowDays         float64 `mapstructure:"window_days"`
	AnnounceWindowDays float64 `mapstructure:"announce_window_days"`
	ValueEpsilon       float64 `mapstructure:"value_epsilon"`
	ValueDays          float64 `mapstructure:"value_days"`
	RevenueTolerance   float64 `mapstructure:"revenue_tolerance"`
}

type CalendarConfig struct {
	BackDays    int           `mapstructure:"back_days"`
	ForwardDays int           `mapstructure:"forward_days"`
	ChunkSize   int           `mapstructure:"chunk_size"`
	MaxChunks   int           `mapstructure:"max_chunks"`
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`

	// Screeners overrides the Yahoo screeners used as calendar feeds
	Screeners []ScreenerConfig `mapstructure:"screeners"`
}

type ScreenerConfig struct {
	ID    string `mapstructure:"id"`
	Count int    `mapstructure:"count"`
}

type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	LookupTTL   time.Duration `mapstructure:"lookup_ttl"`
	CalendarTTL time.Duration `mapstructure:"calendar_ttl"`
	MaxEntries  int           `mapstructure:"max_entries"`
}

type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads configuration from file on top of Defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.SetEnvPrefix("QUARTERLY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          8080,
			SourceTimeout: 10 * time.Second,
		},
		Collectors: map[string]CollectorConfig{
			"yahoo":   {Enabled: true, Priority: 1, RateLimit: 2},
			"finnhub": {Enabled: false, Priority: 2, RateLimit: 1},
		},
		Reconcile: ReconcileConfig{
			EPSDisplay:         16,
			RevenueDisplay:     12,
			WindowDays:         45,
			AnnounceWindowDays: 100,
			ValueEpsilon:       0.015,
			ValueDays:          90,
			RevenueTolerance:   0,
		},
		Calendar: CalendarConfig{
			BackDays:    84,
			ForwardDays: 84,
			ChunkSize:   50,
			MaxChunks:   10,
			Concurrency: 3,
			Timeout:     8 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:     true,
			LookupTTL:   300 * time.Second,
			CalendarTTL: 120 * time.Second,
			MaxEntries:  500,
		},
		Archive: ArchiveConfig{
			Type: "localfs",
			Path: "./data/snapshots",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.SourceTimeout < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("source_timeout cannot be negative, got %s", c.Server.SourceTimeout))
	}

	for name, cc := range c.Collectors {
		if !cc.Enabled {
			continue
		}
		if name == "finnhub" && cc.APIKey == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("finnhub api_key required when enabled"))
		}
	}

	if c.Calendar.BackDays < 0 || c.Calendar.ForwardDays < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("calendar window cannot be negative, got -%d/+%d", c.Calendar.BackDays, c.Calendar.ForwardDays))
	}
	for _, sc := range c.Calendar.Screeners {
		if sc.ID == "" || sc.Count <= 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("screener needs an id and a positive count, got %q/%d", sc.ID, sc.Count))
		}
	}
	if c.Reconcile.WindowDays < 0 || c.Reconcile.AnnounceWindowDays < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("reconcile windows cannot be negative"))
	}
	if c.Reconcile.RevenueTolerance < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("revenue_tolerance cannot be negative, got %g", c.Reconcile.RevenueTolerance))
	}

	switch c.Archive.Type {
	case "", "localfs":
	case "s3":
		if c.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when archive type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type %q", c.Archive.Type))
	}

	return nil
}
