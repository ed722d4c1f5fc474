package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ktmaeda/dealerdesk/internal/cache/redis"
	"github.com/ktmaeda/dealerdesk/internal/config"
	"github.com/ktmaeda/dealerdesk/internal/dealer"
	"github.com/ktmaeda/dealerdesk/internal/domain"
	"github.com/ktmaeda/dealerdesk/internal/store/postgres"
	"github.com/ktmaeda/dealerdesk/internal/venue/bitflyer"
)

// Dependencies bundles everything the server needs: the registered exchange
// adapters plus the optional cache and journal backends. Optional fields stay
// nil when their backend is disabled.
type Dependencies struct {
	Adapters     *dealer.Adapters
	BookCache    domain.BookCache
	OrderJournal domain.OrderJournal
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Adapters: dealer.NewAdapters(),
	}

	// --- Venue adapters ---
	deps.Adapters.Register(bitflyer.NewAdapter(bitflyer.Config{
		APIKey:       cfg.Bitflyer.APIKey,
		APISecret:    cfg.Bitflyer.APISecret,
		RESTEndpoint: cfg.Bitflyer.RESTEndpoint,
		WSEndpoint:   cfg.Bitflyer.WSEndpoint,
	}, logger))

	// --- Redis book cache (optional) ---
	if cfg.Redis.Enabled {
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
		deps.BookCache = redis.NewBookCache(redisClient)
	}

	// --- PostgreSQL order journal (optional) ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		journal, err := postgres.NewOrderJournal(ctx, pgClient.Pool())
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: order journal: %w", err)
		}
		deps.OrderJournal = journal
	}

	return deps, cleanup, nil
}
