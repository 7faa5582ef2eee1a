package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Mode = "turbo" }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"zero window", func(c *Config) { c.Market.Window.Duration = 0 }},
		{"bad oracle kind", func(c *Config) { c.Oracle.Kind = "chainlink" }},
		{"http oracle without endpoint", func(c *Config) { c.Oracle.Kind = "http"; c.Oracle.Endpoint = "" }},
		{"bad oracle fee", func(c *Config) { c.Oracle.Fee = "lots" }},
		{"negative feed price", func(c *Config) {
			c.Oracle.Feeds = []FeedConfig{{ID: "X", Price: "-1", Decimals: 8}}
		}},
		{"empty redis addr", func(c *Config) { c.Redis.Addr = "" }},
		{"bad server port", func(c *Config) { c.Server.Port = 70000 }},
		{"enabled db without host", func(c *Config) {
			c.Database.Enabled = true
			c.Database.Host = ""
		}},
		{"enabled s3 without bucket", func(c *Config) {
			c.S3.Enabled = true
			c.S3.Bucket = ""
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
mode = "dev"
log_level = "debug"

[market]
window = "90s"

[oracle]
kind = "static"
fee = "25"

[[oracle.feeds]]
id = "BTC-USD"
price = "6500000000000"
decimals = 8

[server]
port = 9100
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "dev", cfg.Mode)
	assert.Equal(t, 90*time.Second, cfg.Market.Window.Duration)
	assert.Equal(t, "25", cfg.OracleFee().String())
	assert.Equal(t, 9100, cfg.Server.Port)
	require.Len(t, cfg.Oracle.Feeds, 1)
	assert.Equal(t, "BTC-USD", cfg.Oracle.Feeds[0].ID)

	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.False(t, cfg.Database.Enabled)
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("mode = \"server\"\n"), 0o600))

	t.Setenv("UPDOWN_SERVER_PORT", "9200")
	t.Setenv("UPDOWN_MARKET_WINDOW", "30s")
	t.Setenv("UPDOWN_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("UPDOWN_MODE", "dev")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Market.Window.Duration)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, "dev", cfg.Mode)
}

func TestOracleFeeDefaultsToZero(t *testing.T) {
	cfg := Defaults()
	cfg.Oracle.Fee = ""
	assert.Equal(t, "0", cfg.OracleFee().String())
}
