package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies UPDOWN_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known UPDOWN_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Market ──
	setDuration(&cfg.Market.Window, "UPDOWN_MARKET_WINDOW")

	// ── Oracle ──
	setStr(&cfg.Oracle.Kind, "UPDOWN_ORACLE_KIND")
	setStr(&cfg.Oracle.Endpoint, "UPDOWN_ORACLE_ENDPOINT")
	setStr(&cfg.Oracle.ApiKey, "UPDOWN_ORACLE_API_KEY")
	setStr(&cfg.Oracle.Fee, "UPDOWN_ORACLE_FEE")

	// ── Database ──
	setBool(&cfg.Database.Enabled, "UPDOWN_DATABASE_ENABLED")
	setStr(&cfg.Database.DSN, "UPDOWN_DATABASE_DSN")
	setStr(&cfg.Database.Host, "UPDOWN_DATABASE_HOST")
	setInt(&cfg.Database.Port, "UPDOWN_DATABASE_PORT")
	setStr(&cfg.Database.Database, "UPDOWN_DATABASE_DATABASE")
	setStr(&cfg.Database.User, "UPDOWN_DATABASE_USER")
	setStr(&cfg.Database.Password, "UPDOWN_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "UPDOWN_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "UPDOWN_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "UPDOWN_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "UPDOWN_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "UPDOWN_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "UPDOWN_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "UPDOWN_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "UPDOWN_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "UPDOWN_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "UPDOWN_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "UPDOWN_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "UPDOWN_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "UPDOWN_S3_REGION")
	setStr(&cfg.S3.Bucket, "UPDOWN_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "UPDOWN_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "UPDOWN_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "UPDOWN_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "UPDOWN_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setInt(&cfg.Server.Port, "UPDOWN_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "UPDOWN_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "UPDOWN_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "UPDOWN_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "UPDOWN_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "UPDOWN_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "UPDOWN_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "UPDOWN_MODE")
	setStr(&cfg.LogLevel, "UPDOWN_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
