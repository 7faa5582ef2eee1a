// Package config defines the top-level configuration for the updown ledger
// daemon and provides validation helpers.
package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by UPDOWN_* environment variables.
type Config struct {
	Market   MarketConfig   `toml:"market"`
	Oracle   OracleConfig   `toml:"oracle"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// MarketConfig holds round lifecycle parameters.
type MarketConfig struct {
	// Window is the length of a round's entry phase; the live phase has the
	// same length. Rounds chain every Window.
	Window duration `toml:"window"`
}

// FeedConfig seeds a single price feed for the static oracle used in dev
// mode. Price is a decimal string at the given number of decimals.
type FeedConfig struct {
	ID       string `toml:"id"`
	Price    string `toml:"price"`
	Decimals int    `toml:"decimals"`
}

// OracleConfig selects and configures the price oracle backend.
type OracleConfig struct {
	// Kind selects the backend: "static" (fixed in-memory prices, dev mode)
	// or "http" (REST price feed service).
	Kind     string       `toml:"kind"`
	Endpoint string       `toml:"endpoint"`
	ApiKey   string       `toml:"api_key"`
	Fee      string       `toml:"fee"` // flat per-lookup fee, decimal string
	Feeds    []FeedConfig `toml:"feeds"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the round
// snapshot and event journal stores.
type DatabaseConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for resolved round
// archives.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Market: MarketConfig{
			Window: duration{5 * time.Minute},
		},
		Oracle: OracleConfig{
			Kind: "static",
			Fee:  "0",
		},
		Database: DatabaseConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "updown",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "updown-rounds",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"initialized_market", "round_resolved"},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"dev":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validOracleKinds enumerates the accepted values for Oracle.Kind.
var validOracleKinds = map[string]bool{
	"static": true,
	"http":   true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, dev)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Market
	if c.Market.Window.Duration <= 0 {
		errs = append(errs, "market: window must be a positive duration")
	}

	// Oracle
	kind := strings.ToLower(c.Oracle.Kind)
	if !validOracleKinds[kind] {
		errs = append(errs, fmt.Sprintf("oracle: unknown kind %q (valid: static, http)", c.Oracle.Kind))
	}
	if kind == "http" && c.Oracle.Endpoint == "" {
		errs = append(errs, "oracle: endpoint is required when kind is http")
	}
	if c.Oracle.Fee != "" {
		if fee, ok := new(big.Int).SetString(c.Oracle.Fee, 10); !ok || fee.Sign() < 0 {
			errs = append(errs, fmt.Sprintf("oracle: fee %q is not a non-negative decimal", c.Oracle.Fee))
		}
	}
	for i, feed := range c.Oracle.Feeds {
		if feed.ID == "" {
			errs = append(errs, fmt.Sprintf("oracle: feeds[%d]: id must not be empty", i))
		}
		if p, ok := new(big.Int).SetString(feed.Price, 10); !ok || p.Sign() < 0 {
			errs = append(errs, fmt.Sprintf("oracle: feeds[%d]: price %q is not a non-negative decimal", i, feed.Price))
		}
		if feed.Decimals < 0 || feed.Decimals > 77 {
			errs = append(errs, fmt.Sprintf("oracle: feeds[%d]: decimals must be 0-77, got %d", i, feed.Decimals))
		}
	}

	// Database
	if c.Database.Enabled {
		if strings.TrimSpace(c.Database.DSN) == "" {
			if c.Database.Host == "" {
				errs = append(errs, "database: host must not be empty (or set database.dsn)")
			}
			if c.Database.Port <= 0 || c.Database.Port > 65535 {
				errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
			}
			if c.Database.Database == "" {
				errs = append(errs, "database: database must not be empty")
			}
		}
		if c.Database.PoolMaxConns < 1 {
			errs = append(errs, "database: pool_max_conns must be >= 1")
		}
		if c.Database.PoolMinConns < 0 {
			errs = append(errs, "database: pool_min_conns must be >= 0")
		}
		if c.Database.PoolMinConns > c.Database.PoolMaxConns {
			errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// OracleFee returns the configured flat lookup fee. Call only after Validate.
func (c *Config) OracleFee() *big.Int {
	if c.Oracle.Fee == "" {
		return big.NewInt(0)
	}
	fee, ok := new(big.Int).SetString(c.Oracle.Fee, 10)
	if !ok {
		return big.NewInt(0)
	}
	return fee
}
