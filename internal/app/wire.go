package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	s3blob "github.com/updownlabs/updown/internal/blob/s3"
	"github.com/updownlabs/updown/internal/cache/redis"
	"github.com/updownlabs/updown/internal/config"
	"github.com/updownlabs/updown/internal/domain"
	"github.com/updownlabs/updown/internal/engine"
	"github.com/updownlabs/updown/internal/events"
	"github.com/updownlabs/updown/internal/notify"
	"github.com/updownlabs/updown/internal/oracle"
	"github.com/updownlabs/updown/internal/store/postgres"
)

// Dependencies bundles everything the application modes need to serve the
// ledger API. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	Ledger *engine.Engine
	Bank   *engine.MemBank
	Oracle domain.PriceOracle

	// Caches
	PriceCache domain.PriceCache
	SignalBus  domain.SignalBus

	// Stores (nil unless database.enabled)
	RoundStore   domain.RoundStore
	JournalStore domain.JournalStore

	// Blob storage (nil unless s3.enabled)
	Archiver *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient, time.Duration(0))
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- Oracle ---
	switch strings.ToLower(cfg.Oracle.Kind) {
	case "http":
		feed := oracle.NewHTTPFeed(cfg.Oracle.Endpoint, cfg.Oracle.ApiKey)
		deps.Oracle = oracle.NewCached(feed, deps.PriceCache, logger)
	default:
		static := oracle.NewStatic(cfg.OracleFee())
		for _, f := range cfg.Oracle.Feeds {
			price, ok := new(big.Int).SetString(f.Price, 10)
			if !ok {
				cleanup()
				return nil, nil, fmt.Errorf("wire: oracle: bad price %q for feed %q", f.Price, f.ID)
			}
			static.SetPrice(f.ID, price, uint8(f.Decimals))
		}
		deps.Oracle = static
	}

	// --- PostgreSQL (optional persistence for snapshots and the journal) ---
	if cfg.Database.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.PoolMaxConns,
			MinConns: cfg.Database.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Database.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.RoundStore = postgres.NewRoundStore(pool)
		deps.JournalStore = postgres.NewJournalStore(pool)
	}

	// --- S3 blob storage (optional resolved-round archive) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client))
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Ledger ---
	deps.Bank = engine.NewMemBank()
	deps.Ledger = engine.New(deps.Oracle, logger,
		engine.WithWindow(cfg.Market.Window.Duration),
		engine.WithBank(deps.Bank),
	)

	// The event fan needs the ledger as its round source, so the sink is
	// installed after construction, before any traffic is served.
	var archiver events.RoundArchiver
	if deps.Archiver != nil {
		archiver = deps.Archiver
	}
	fan := events.New(
		deps.SignalBus,
		deps.JournalStore,
		deps.RoundStore,
		archiver,
		deps.Notifier,
		deps.Ledger,
		logger,
	)
	deps.Ledger.SetSink(fan)

	return deps, cleanup, nil
}
