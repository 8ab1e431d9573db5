package main

import (
	"fmt"
	"time"

	"github.com/Belphemur/AniBridge/internal/anidb"
	"github.com/Belphemur/AniBridge/internal/cache"
	"github.com/Belphemur/AniBridge/internal/client"
	"github.com/Belphemur/AniBridge/internal/config"
	"github.com/Belphemur/AniBridge/internal/episodes"
	"github.com/Belphemur/AniBridge/internal/ratelimit"
	"github.com/Belphemur/AniBridge/internal/relations"
	"github.com/Belphemur/AniBridge/internal/reporting"
	"github.com/Belphemur/AniBridge/internal/resolver"
	"github.com/Belphemur/AniBridge/internal/season"
)

// ledgerTTL bounds entries written without their own deadline. Dispatch
// leases expire after the limiter interval.
const ledgerTTL = time.Hour

// app holds the process-wide components built from the configuration.
type app struct {
	resolver *resolver.Resolver
	limiter  *ratelimit.Limiter
	ledger   cache.Cache
	reporter reporting.Reporter
}

// newApp wires the pipeline. The returned app owns one limiter that every
// AniDB request in the process goes through.
func newApp(cfg *config.Config) (*app, error) {
	logger := config.GetLogger()
	httpClient := client.NewHTTPClient(cfg)

	var ledger cache.Cache
	if cfg.Ledger.Provider != "" {
		var err error
		ledger, err = cache.New(cfg.Ledger.Provider, cache.ProviderConfig{
			Size:          16,
			TTL:           ledgerTTL,
			Logger:        logger,
			RedisAddress:  cfg.Ledger.RedisAddress,
			RedisPassword: cfg.Ledger.RedisPassword,
			RedisDB:       cfg.Ledger.RedisDB,
			Group:         "ratelimit_ledger",
		})
		if err != nil {
			return nil, fmt.Errorf("create dispatch ledger: %w", err)
		}
		if cfg.Ledger.Provider == "memory" {
			logger.Warn().Msg("Memory dispatch ledger is process-local: it only adds cache metrics, use redis to share spacing across restarts and processes")
		}
	}

	limiter := ratelimit.New(ratelimit.Config{
		Name:        "anidb",
		MinInterval: config.Duration("anidb.min_interval", cfg.AniDB.MinInterval, ratelimit.DefaultMinInterval),
		WarmUp:      config.Duration("anidb.warm_up", cfg.AniDB.WarmUp, ratelimit.DefaultWarmUp),
		Production:  cfg.Production,
		Ledger:      ledger,
		Logger:      logger,
	})

	reporter, err := reporting.NewSentry(cfg.Sentry.DSN, environment(cfg), version)
	if err != nil {
		if ledger != nil {
			_ = ledger.Close()
		}
		return nil, fmt.Errorf("create sentry reporter: %w", err)
	}

	var locator season.Locator
	if cfg.Season.URL != "" {
		locator = season.NewHTTPLocator(cfg.Season.URL, httpClient)
	}

	r := resolver.New(resolver.Dependencies{
		Relations: relations.New(cfg.Relations.URL, httpClient),
		AniDB: anidb.New(anidb.Config{
			BaseURL:       cfg.AniDB.URL,
			ClientName:    cfg.AniDB.Client,
			ClientVersion: cfg.AniDB.ClientVersion,
		}, httpClient, limiter),
		Selector: episodes.Selector{Strict: cfg.AniDB.StrictFirstEpisode},
		Locator:  locator,
		Reporter: reporter,
	})

	logger.Info().
		Bool("production", cfg.Production).
		Dur("min_interval", limiter.MinInterval()).
		Str("ledger", cfg.Ledger.Provider).
		Bool("season_locator", locator != nil).
		Bool("strict_first_episode", cfg.AniDB.StrictFirstEpisode).
		Msg("Pipeline configured")

	return &app{resolver: r, limiter: limiter, ledger: ledger, reporter: reporter}, nil
}

// Close flushes pending reports and releases the ledger backend.
func (a *app) Close() error {
	a.reporter.Flush(2 * time.Second)
	if a.ledger != nil {
		return a.ledger.Close()
	}
	return nil
}

func environment(cfg *config.Config) string {
	if cfg.Production {
		return "production"
	}
	return "development"
}
