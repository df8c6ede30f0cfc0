// Package config loads fourscal settings from a YAML file, an optional .env
// file and FOURSCAL_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/pfrederiksen/fourscal/internal/event"
	"github.com/pfrederiksen/fourscal/internal/logger"
)

// Renderers accepted in the renderer setting.
const (
	RendererChrome = "chrome"
	RendererHTTP   = "http"
)

// Config holds all application configuration.
type Config struct {
	LogLevel      string        `yaml:"log_level"`
	Renderer      string        `yaml:"renderer"`
	ChromePath    string        `yaml:"chrome_path"`
	UserAgent     string        `yaml:"user_agent"`
	SettleTimeout time.Duration `yaml:"settle_timeout"`
	MarkerTimeout time.Duration `yaml:"marker_timeout"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	AllowedHosts  []string      `yaml:"allowed_hosts"`
	RateLimit     RateLimit     `yaml:"rate_limit"`
	Date          Date          `yaml:"date"`
	Server        Server        `yaml:"server"`
}

// RateLimit bounds requests to the event site. A zero PerSecond disables it.
type RateLimit struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// Date configures the date interpreter.
type Date struct {
	// OnMissing is "error" or "default".
	OnMissing string `yaml:"on_missing"`
}

// Server configures the HTTP API.
type Server struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads configuration from a YAML file and applies defaults and
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config yaml: %w", err)
		}
	}

	applyDefaults(cfg)
	if err := applyEnvironmentOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads variables from a .env file into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Path returns the config file path from FOURSCAL_CONFIG, or empty.
func Path() string {
	return os.Getenv("FOURSCAL_CONFIG")
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Renderer == "" {
		cfg.Renderer = RendererChrome
	}
	if cfg.SettleTimeout == 0 {
		cfg.SettleTimeout = 30 * time.Second
	}
	if cfg.MarkerTimeout == 0 {
		cfg.MarkerTimeout = 10 * time.Second
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if len(cfg.AllowedHosts) == 0 {
		cfg.AllowedHosts = []string{"4s.link"}
	}
	if cfg.RateLimit.PerSecond > 0 && cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 1
	}
	if cfg.Date.OnMissing == "" {
		cfg.Date.OnMissing = event.NoMatchError.String()
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
}

func applyEnvironmentOverrides(cfg *Config) error {
	if v := os.Getenv("FOURSCAL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FOURSCAL_RENDERER"); v != "" {
		cfg.Renderer = v
	}
	if v := os.Getenv("FOURSCAL_CHROME_PATH"); v != "" {
		cfg.ChromePath = v
	}
	if v := os.Getenv("FOURSCAL_ALLOWED_HOSTS"); v != "" {
		cfg.AllowedHosts = splitList(v)
	}
	if v := os.Getenv("FOURSCAL_DATE_ON_MISSING"); v != "" {
		cfg.Date.OnMissing = v
	}
	if v := os.Getenv("FOURSCAL_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("FOURSCAL_RATE_PER_SECOND"); v != "" {
		perSecond, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parsing FOURSCAL_RATE_PER_SECOND: %w", err)
		}
		cfg.RateLimit.PerSecond = perSecond
		if cfg.RateLimit.Burst == 0 {
			cfg.RateLimit.Burst = 1
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Renderer {
	case RendererChrome, RendererHTTP:
	default:
		return fmt.Errorf("renderer must be %q or %q, got %q", RendererChrome, RendererHTTP, c.Renderer)
	}
	if _, err := event.ParseNoMatchPolicy(c.Date.OnMissing); err != nil {
		return err
	}
	if c.SettleTimeout < 0 || c.MarkerTimeout < 0 || c.HTTPTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.RateLimit.PerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() logger.Level {
	level, _ := logger.ParseLevel(c.LogLevel)
	return level
}

// NoMatchPolicy returns the configured date fallback policy.
func (c *Config) NoMatchPolicy() event.NoMatchPolicy {
	policy, _ := event.ParseNoMatchPolicy(c.Date.OnMissing)
	return policy
}

// Limiter returns a limiter for upstream requests, or nil when unlimited.
func (c *Config) Limiter() *rate.Limiter {
	if c.RateLimit.PerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(c.RateLimit.PerSecond), c.RateLimit.Burst)
}
