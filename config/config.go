// Package config holds the gateway configuration: defaults, file loading,
// validation and environment/flag overrides.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidPort is returned when the listen port is out of range
	ErrInvalidPort = errors.New("port must be between 1 and 65535")

	// ErrInvalidUpstream is returned when the upstream base URL is unusable
	ErrInvalidUpstream = errors.New("upstream base_url must be an absolute http(s) URL")

	// ErrInvalidLimit is returned when the rate limit is not positive
	ErrInvalidLimit = errors.New("rate limit must be positive")

	// ErrInvalidWindow is returned when the rate window is not positive
	ErrInvalidWindow = errors.New("rate window must be positive")

	// ErrUnknownBackend is returned for an unsupported rate limit backend
	ErrUnknownBackend = errors.New("rate limit backend must be memory or redis")

	// ErrMissingRedisAddr is returned when the redis backend has no address
	ErrMissingRedisAddr = errors.New("redis backend requires redis.addr")

	// ErrUnsupportedFormat is returned for config files that are neither YAML nor TOML
	ErrUnsupportedFormat = errors.New("config file must be .yaml, .yml or .toml")
)

// Rate limit backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the complete gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server" mapstructure:"server"`
	Upstream  UpstreamConfig  `yaml:"upstream" toml:"upstream" mapstructure:"upstream"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit" mapstructure:"rate_limit"`
	Redis     RedisConfig     `yaml:"redis" toml:"redis" mapstructure:"redis"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging" mapstructure:"logging"`
	CORS      CORSConfig      `yaml:"cors" toml:"cors" mapstructure:"cors"`
}

// ServerConfig configures the proxy listener
type ServerConfig struct {
	Host            string        `yaml:"host" toml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" toml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" toml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" toml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" toml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// AdminAddr enables the admin listener (metrics, health) when set
	AdminAddr string `yaml:"admin_addr" toml:"admin_addr" mapstructure:"admin_addr"`
}

// UpstreamConfig configures the relay target
type UpstreamConfig struct {
	BaseURL                  string        `yaml:"base_url" toml:"base_url" mapstructure:"base_url"`
	Timeout                  time.Duration `yaml:"timeout" toml:"timeout" mapstructure:"timeout"`
	RewriteInternalRedirects bool          `yaml:"rewrite_internal_redirects" toml:"rewrite_internal_redirects" mapstructure:"rewrite_internal_redirects"`
}

// RateLimitConfig configures admission control
type RateLimitConfig struct {
	Enabled       bool          `yaml:"enabled" toml:"enabled" mapstructure:"enabled"`
	Limit         int           `yaml:"limit" toml:"limit" mapstructure:"limit"`
	Window        time.Duration `yaml:"window" toml:"window" mapstructure:"window"`
	SweepInterval time.Duration `yaml:"sweep_interval" toml:"sweep_interval" mapstructure:"sweep_interval"`
	Backend       string        `yaml:"backend" toml:"backend" mapstructure:"backend"`
}

// RedisConfig configures the shared window backend
type RedisConfig struct {
	Addr      string `yaml:"addr" toml:"addr" mapstructure:"addr"`
	Password  string `yaml:"password" toml:"password" mapstructure:"password"`
	DB        int    `yaml:"db" toml:"db" mapstructure:"db"`
	KeyPrefix string `yaml:"key_prefix" toml:"key_prefix" mapstructure:"key_prefix"`
}

// LoggingConfig configures the process logger
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" mapstructure:"level"`
	Format string `yaml:"format" toml:"format" mapstructure:"format"`
}

// CORSConfig configures cross-origin response headers
type CORSConfig struct {
	AllowOrigin string `yaml:"allow_origin" toml:"allow_origin" mapstructure:"allow_origin"`
}

// NewConfig creates a new Config with the default settings
func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    45 * time.Second, // longer than the upstream timeout
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Upstream: UpstreamConfig{
			BaseURL: "https://anyrouter.top",
			Timeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			Limit:         1000,
			Window:        60 * time.Second,
			SweepInterval: 2 * time.Minute,
			Backend:       BackendMemory,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "relaygate:",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			AllowOrigin: "*",
		},
	}
}

// LoadConfigFromFile loads configuration from a YAML or TOML file on top
// of the defaults. The format is chosen by extension.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrInvalidConfig, err)
	}

	config := NewConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: failed to parse YAML: %v", ErrInvalidConfig, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), config); err != nil {
			return nil, fmt.Errorf("%w: failed to parse TOML: %v", ErrInvalidConfig, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: %w (got %d)", ErrInvalidConfig, ErrInvalidPort, c.Server.Port)
	}

	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %w (got %q)", ErrInvalidConfig, ErrInvalidUpstream, c.Upstream.BaseURL)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Limit <= 0 {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrInvalidLimit)
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrInvalidWindow)
		}

		switch c.RateLimit.Backend {
		case BackendMemory:
		case BackendRedis:
			if c.Redis.Addr == "" {
				return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrMissingRedisAddr)
			}
		default:
			return fmt.Errorf("%w: %w (got %q)", ErrInvalidConfig, ErrUnknownBackend, c.RateLimit.Backend)
		}
	}

	return nil
}

// ListenAddr returns host:port for the proxy listener
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
