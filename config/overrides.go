package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. RELAYGATE_RATE_LIMIT_LIMIT
const EnvPrefix = "RELAYGATE"

// Keys lists every configuration key that can be overridden
var Keys = []string{
	"server.host",
	"server.port",
	"server.read_timeout",
	"server.write_timeout",
	"server.idle_timeout",
	"server.shutdown_timeout",
	"server.admin_addr",
	"upstream.base_url",
	"upstream.timeout",
	"upstream.rewrite_internal_redirects",
	"rate_limit.enabled",
	"rate_limit.limit",
	"rate_limit.window",
	"rate_limit.sweep_interval",
	"rate_limit.backend",
	"redis.addr",
	"redis.password",
	"redis.db",
	"redis.key_prefix",
	"logging.level",
	"logging.format",
	"cors.allow_origin",
}

// EnvName returns the environment variable overriding key
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// BindEnv binds every key to its RELAYGATE_* variable. server.port also
// honors the conventional PORT variable.
func BindEnv(v *viper.Viper) error {
	for _, key := range Keys {
		names := []string{key, EnvName(key)}
		if key == "server.port" {
			names = append(names, "PORT")
		}
		if err := v.BindEnv(names...); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

// ApplyOverrides merges every key explicitly set in v (environment or a
// changed flag) into cfg. Keys that are not set leave cfg untouched.
func ApplyOverrides(cfg *Config, v *viper.Viper) error {
	overrides := make(map[string]any)
	for _, key := range Keys {
		if !v.IsSet(key) {
			continue
		}
		section, field, _ := strings.Cut(key, ".")
		sub, ok := overrides[section].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			overrides[section] = sub
		}
		sub[field] = v.Get(key)
	}

	if len(overrides) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(overrides); err != nil {
		return fmt.Errorf("%w: failed to apply overrides: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Setting is one effective configuration value
type Setting struct {
	Key   string
	Value string
	Env   string
}

// Settings flattens cfg in Keys order. Secrets are masked.
func (c *Config) Settings() []Setting {
	values := map[string]string{
		"server.host":                         c.Server.Host,
		"server.port":                         strconv.Itoa(c.Server.Port),
		"server.read_timeout":                 c.Server.ReadTimeout.String(),
		"server.write_timeout":                c.Server.WriteTimeout.String(),
		"server.idle_timeout":                 c.Server.IdleTimeout.String(),
		"server.shutdown_timeout":             c.Server.ShutdownTimeout.String(),
		"server.admin_addr":                   c.Server.AdminAddr,
		"upstream.base_url":                   c.Upstream.BaseURL,
		"upstream.timeout":                    c.Upstream.Timeout.String(),
		"upstream.rewrite_internal_redirects": strconv.FormatBool(c.Upstream.RewriteInternalRedirects),
		"rate_limit.enabled":                  strconv.FormatBool(c.RateLimit.Enabled),
		"rate_limit.limit":                    strconv.Itoa(c.RateLimit.Limit),
		"rate_limit.window":                   c.RateLimit.Window.String(),
		"rate_limit.sweep_interval":           formatInterval(c.RateLimit.SweepInterval),
		"rate_limit.backend":                  c.RateLimit.Backend,
		"redis.addr":                          c.Redis.Addr,
		"redis.password":                      mask(c.Redis.Password),
		"redis.db":                            strconv.Itoa(c.Redis.DB),
		"redis.key_prefix":                    c.Redis.KeyPrefix,
		"logging.level":                       c.Logging.Level,
		"logging.format":                      c.Logging.Format,
		"cors.allow_origin":                   c.CORS.AllowOrigin,
	}

	settings := make([]Setting, 0, len(Keys))
	for _, key := range Keys {
		settings = append(settings, Setting{Key: key, Value: values[key], Env: EnvName(key)})
	}
	return settings
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

func formatInterval(d time.Duration) string {
	if d <= 0 {
		return "disabled"
	}
	return d.String()
}
