// Package config loads the service configuration. Values come from built-in
// defaults, then an optional YAML file, then HLSFILTER_* environment
// variables, each layer overriding the one before it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/as/hlsfilter/filter"
)

type Config struct {
	Listen    string          `yaml:"listen"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Cache     CacheConfig     `yaml:"cache"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Filters   FilterConfig    `yaml:"filters"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ServerConfig struct {
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// RateLimitConfig limits requests per client IP
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// CacheConfig configures the response cache. An empty RedisAddr disables it.
type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`

	// Environment is reported as deployment.environment on every span
	Environment string `yaml:"environment"`
}

// FilterConfig holds the transform options used when a request leaves them out
type FilterConfig struct {
	Master filter.MasterOptions `yaml:"master"`
	Media  filter.MediaOptions  `yaml:"media"`
}

// Defaults returns the configuration used when nothing else is set
func Defaults() Config {
	return Config{
		Listen: ":8080",
		Log:    LogConfig{Level: "info"},
		Server: ServerConfig{
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    8 << 20,
		},
		RateLimit: RateLimitConfig{
			Requests: 600,
			Window:   time.Minute,
		},
		Cache: CacheConfig{TTL: 30 * time.Second},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}

// Load builds the configuration from the defaults, the YAML file at path
// (if path is not empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes the YAML file onto cfg. Unknown fields are an error.
func loadFile(path string, cfg *Config) error {
	path = filepath.Clean(path)
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %q (only YAML supported)", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("config file contains multiple documents or trailing content")
	}
	return nil
}

// Validate reports every invalid setting
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, a ...any) {
		errs = append(errs, fmt.Errorf(format, a...))
	}
	if c.Listen == "" {
		bad("listen: must not be empty")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		bad("server: timeouts must not be negative")
	}
	if c.Server.MaxBodyBytes <= 0 {
		bad("server.max_body_bytes: must be positive, got %d", c.Server.MaxBodyBytes)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		bad("ratelimit: requests and window must be positive when enabled")
	}
	if c.Cache.RedisAddr != "" && c.Cache.TTL <= 0 {
		bad("cache.ttl: must be positive, got %s", c.Cache.TTL)
	}
	if c.Cache.DB < 0 {
		bad("cache.db: must not be negative")
	}
	if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
		bad("telemetry.sampling_rate: must be within [0, 1], got %v", c.Telemetry.SamplingRate)
	}
	if c.Telemetry.Enabled {
		switch c.Telemetry.Exporter {
		case "grpc", "http":
		default:
			bad("telemetry.exporter: unsupported %q (supported: grpc, http)", c.Telemetry.Exporter)
		}
	}
	if w := c.Filters.Media.Window; w != nil && *w < 0 {
		bad("filters.media.window: must not be negative")
	}
	return errors.Join(errs...)
}
