package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/relaygate/config"
)

func TestLoadConfig_EnvOverrides(t *testing.T) {
	cfgFile = ""
	t.Setenv("PORT", "8081")
	t.Setenv("RELAYGATE_RATE_LIMIT_LIMIT", "42")
	t.Setenv("RELAYGATE_UPSTREAM_TIMEOUT", "5s")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 42, cfg.RateLimit.Limit)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, "https://anyrouter.top", cfg.Upstream.BaseURL)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relaygate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
upstream:
  base_url: "http://upstream.internal:9000"
rate_limit:
  limit: 10
`), 0o600))

	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })
	t.Setenv("RELAYGATE_RATE_LIMIT_LIMIT", "20")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://upstream.internal:9000", cfg.Upstream.BaseURL)
	assert.Equal(t, 20, cfg.RateLimit.Limit)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cfgFile = ""
	t.Setenv("RELAYGATE_RATE_LIMIT_BACKEND", "memcached")

	_, err := loadConfig()
	assert.ErrorIs(t, err, config.ErrUnknownBackend)
}

func TestRenderSettings(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Redis.Password = "hunter2"

	out := renderSettings(cfg.Settings())

	assert.Contains(t, out, "RELAYGATE_SERVER_PORT")
	assert.Contains(t, out, "rate_limit.window")
	assert.Contains(t, out, "1m0s")
	assert.NotContains(t, out, "hunter2")
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)

	assert.Contains(t, buf.String(), "relaygate dev")
}
