// Package config loads the not-idle command configuration.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for not-idle
type Config struct {
	// Window settings
	Window    float64       `yaml:"window"`
	Scale     time.Duration `yaml:"scale"`
	Immediate bool          `yaml:"immediate"`

	// Watched events on the wrapped session
	Events        []string `yaml:"events"`
	WatchDefaults bool     `yaml:"watch_defaults"`

	// Reporting
	Quiet     bool            `yaml:"quiet"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Window      time.Duration `yaml:"window"`
	MaxMessages int           `yaml:"max_messages"`
}

// LokiConfig configures the optional Loki log sink.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels"`
}

// LoggingConfig holds logging options.
type LoggingConfig struct {
	Level  string     `yaml:"level"`
	Format string     `yaml:"format"`
	Loki   LokiConfig `yaml:"loki"`
}

// MetricsConfig holds the Prometheus endpoint options.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Window: 1,
		Scale:  time.Minute,
		Events: []string{"input", "output"},
		RateLimit: RateLimitConfig{
			Window:      time.Minute,
			MaxMessages: 5,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Period returns the effective window period.
func (c *Config) Period() time.Duration {
	return time.Duration(c.Window * float64(c.Scale))
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	return LoadFile(getConfigPath())
}

// LoadFile loads configuration from path (if it exists) and the environment.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil && !os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrap(err, "failed to load config file")
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load from environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return cfg, nil
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if path := os.Getenv("NOT_IDLE_CONFIG"); path != "" {
		return path
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "not-idle", "config.yaml")
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "not-idle", "config.yaml")
	}

	return ""
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, path string) error {
	// #nosec G304 - The config file path comes from trusted sources (flag, env var or standard locations)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return errors.Wrapf(yaml.Unmarshal(data, cfg), "parse %s", path)
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) error {
	if window := os.Getenv("NOT_IDLE_WINDOW"); window != "" {
		v, err := strconv.ParseFloat(window, 64)
		if err != nil {
			return errors.Wrap(err, "invalid NOT_IDLE_WINDOW")
		}
		cfg.Window = v
	}

	if scale := os.Getenv("NOT_IDLE_SCALE"); scale != "" {
		d, err := time.ParseDuration(scale)
		if err != nil {
			return errors.Wrap(err, "invalid NOT_IDLE_SCALE")
		}
		cfg.Scale = d
	}

	if err := envBool("NOT_IDLE_IMMEDIATE", &cfg.Immediate); err != nil {
		return err
	}
	if err := envBool("NOT_IDLE_QUIET", &cfg.Quiet); err != nil {
		return err
	}
	if err := envBool("NOT_IDLE_WATCH_DEFAULTS", &cfg.WatchDefaults); err != nil {
		return err
	}

	if list := os.Getenv("NOT_IDLE_EVENTS"); list != "" {
		var events []string
		for _, e := range strings.Split(list, ",") {
			if e = strings.TrimSpace(e); e != "" {
				events = append(events, e)
			}
		}
		cfg.Events = events
	}

	if level := os.Getenv("NOT_IDLE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	if listen := os.Getenv("NOT_IDLE_METRICS_LISTEN"); listen != "" {
		cfg.Metrics.Listen = listen
	}

	return nil
}

func envBool(name string, dst *bool) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	switch v {
	case "true", "1", "yes":
		*dst = true
	case "false", "0", "no":
		*dst = false
	default:
		return errors.Errorf("invalid %s value: %q (use true/false)", name, v)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Window <= 0 {
		return errors.New("window must be positive")
	}
	if c.Scale <= 0 {
		return errors.New("scale must be positive")
	}
	if c.Period() <= 0 {
		return errors.New("window period rounds to zero")
	}
	if len(c.Events) == 0 && !c.WatchDefaults {
		return errors.New("no events to watch: set events or watch_defaults")
	}
	for i, e := range c.Events {
		if strings.TrimSpace(e) == "" {
			return errors.Errorf("events[%d] is empty", i)
		}
	}
	if c.RateLimit.MaxMessages < 0 {
		return errors.New("rate_limit.max_messages must be non-negative")
	}
	if c.RateLimit.Window < 0 {
		return errors.New("rate_limit.window must be non-negative")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return errors.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	if c.Logging.Loki.Enabled && c.Logging.Loki.URL == "" {
		return errors.New("logging.loki.url is required when loki is enabled")
	}
	return nil
}
