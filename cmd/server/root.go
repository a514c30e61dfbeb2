package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yourusername/relaygate/config"
)

var cfgFile string

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"host":         "server.host",
	"port":         "server.port",
	"admin-addr":   "server.admin_addr",
	"target":       "upstream.base_url",
	"rate-limit":   "rate_limit.limit",
	"rate-window":  "rate_limit.window",
	"rate-backend": "rate_limit.backend",
	"redis-addr":   "redis.addr",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
}

var rootCmd = &cobra.Command{
	Use:   "relaygate",
	Short: "Rate-limited reverse proxy for a single upstream origin",
	Long: `relaygate forwards every request to one upstream origin with browser-like
headers, decodes compressed bodies, blocks redirects that leave the upstream
host and limits each client to a number of requests per sliding window.

Configuration is read from an optional YAML or TOML file, then RELAYGATE_*
environment variables (and PORT), then flags.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (.yaml, .yml or .toml)")
	flags.String("host", "", "proxy listen host")
	flags.Int("port", 0, "proxy listen port")
	flags.String("admin-addr", "", "admin listener address serving /metrics (empty disables it)")
	flags.String("target", "", "upstream base URL")
	flags.Int("rate-limit", 0, "requests allowed per client per window")
	flags.Duration("rate-window", 0, "sliding window length")
	flags.String("rate-backend", "", "window store: memory or redis")
	flags.String("redis-addr", "", "redis address for the redis backend")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: json or console")

	for flag, key := range flagKeys {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(serveCmd, configCmd, versionCmd)
}

// loadConfig builds the effective configuration: defaults, then the config
// file, then environment variables, then changed flags.
func loadConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if cfgFile != "" {
		loaded, err := config.LoadConfigFromFile(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	v := viper.GetViper()
	if err := config.BindEnv(v); err != nil {
		return nil, err
	}
	if err := config.ApplyOverrides(cfg, v); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
