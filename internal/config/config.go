// Package config loads server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the campaign server.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Campaign CampaignConfig `mapstructure:"campaign"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds the HTTP serving surface settings.
type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
}

// HTTPConfig configures the HTTP/WebSocket listener.
type HTTPConfig struct {
	Address         string          `mapstructure:"address"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string        `mapstructure:"allowed_origins"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-client request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

// CampaignConfig holds campaign-wide rule defaults and persistence paths.
type CampaignConfig struct {
	MaxTokensPerHex  int           `mapstructure:"max_tokens_per_hex"`
	SnapshotDir      string        `mapstructure:"snapshot_dir"`
	AutosaveInterval time.Duration `mapstructure:"autosave_interval"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given file path. A missing file is not
// an error; defaults and CRUSADE_* environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.http.address", ":8080")
	v.SetDefault("server.http.read_timeout", 10*time.Second)
	v.SetDefault("server.http.write_timeout", 10*time.Second)
	v.SetDefault("server.http.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.http.allowed_origins", []string{"*"})
	v.SetDefault("server.http.rate_limit.enabled", true)
	v.SetDefault("server.http.rate_limit.requests_per_second", 20.0)
	v.SetDefault("server.http.rate_limit.burst_size", 40)
	v.SetDefault("campaign.max_tokens_per_hex", 3)
	v.SetDefault("campaign.snapshot_dir", "data/campaigns")
	v.SetDefault("campaign.autosave_interval", 5*time.Minute)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetEnvPrefix("CRUSADE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
