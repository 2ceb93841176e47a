package bootstrap

import (
	"context"
	"fmt"

	"tmtresearch-service/internal/application"
	"tmtresearch-service/internal/config"
	"tmtresearch-service/internal/infrastructure/httpx"
	"tmtresearch-service/internal/infrastructure/logx"
	"tmtresearch-service/internal/infrastructure/pg"
	"tmtresearch-service/internal/infrastructure/provider"
	"tmtresearch-service/internal/infrastructure/ratelimit"
	redisstore "tmtresearch-service/internal/infrastructure/redis"

	"github.com/redis/go-redis/v9"
)

type Stores struct {
	DB        *pg.DB
	Quotes    application.QuoteStore
	News      application.NewsStore
	Earnings  application.EarningsStore
	Companies application.CompanyStore
}

// Providers groups the vendor clients by the port each serves. Only vendors
// with a configured credential are constructed; order is fallback priority.
type Providers struct {
	Quotes    []application.QuoteProvider
	News      []application.NewsProvider
	Calendars []application.EarningsProvider
}

func BuildStores(ctx context.Context, cfg config.Config) (Stores, func(), error) {
	log := logx.L()
	if cfg.DatabaseURL == "" {
		return Stores{}, func() {}, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return Stores{}, func() {}, err
	}
	if err := pg.RunMigrations(ctx, db); err != nil {
		db.Close()
		return Stores{}, func() {}, err
	}
	cleanup := func() {
		log.Info("closing pg")
		db.Close()
	}
	return Stores{
		DB:        db,
		Quotes:    pg.NewQuoteRepo(db),
		News:      pg.NewNewsRepo(db),
		Earnings:  pg.NewEarningsRepo(db),
		Companies: pg.NewCompanyRepo(db),
	}, cleanup, nil
}

// BuildLock builds the single-flight refresh lock (defaults to redis; "none"
// falls back to the in-process noop).
func BuildLock(cfg config.Config) (application.RefreshLock, func(), error) {
	if cfg.LockBackend != "redis" {
		return application.NoopLock{}, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lock := redisstore.NewLock(client, cfg.LockTTL)
	return lock, func() { _ = client.Close() }, nil
}

func BuildProviders(cfg config.Config) Providers {
	log := logx.L()
	client := httpx.New(cfg.RequestTimeout)

	var out Providers
	if cfg.Provider == "fake" {
		out.Quotes = append(out.Quotes, provider.NewFake(100, 2.5))
	}
	if cfg.FinnhubKey != "" {
		fh := &provider.Finnhub{BaseURL: cfg.FinnhubBase, APIKey: cfg.FinnhubKey, Client: client, Log: log}
		out.Quotes = append(out.Quotes, fh)
		out.News = append(out.News, fh)
		out.Calendars = append(out.Calendars, fh)
	}
	if cfg.AlphaVantageKey != "" {
		av := &provider.AlphaVantage{BaseURL: cfg.AlphaVantageBase, APIKey: cfg.AlphaVantageKey, Client: client, Log: log}
		out.Quotes = append(out.Quotes, av)
		out.News = append(out.News, av)
		out.Calendars = append(out.Calendars, av)
	}
	if cfg.MarketauxKey != "" {
		out.News = append(out.News, &provider.Marketaux{BaseURL: cfg.MarketauxBase, APIKey: cfg.MarketauxKey, Client: client, Log: log})
	}
	if cfg.FMPKey != "" {
		out.Calendars = append(out.Calendars, &provider.FMP{BaseURL: cfg.FMPBase, APIKey: cfg.FMPKey, Client: client, Log: log})
	}
	return out
}

// BuildService wires the application service from stores, providers and the
// refresh lock. The pacer spaces provider requests by cfg.RequestDelay.
func BuildService(stores Stores, providers Providers, lock application.RefreshLock, cfg config.Config) (*application.Service, error) {
	log := logx.L()

	if len(providers.Quotes) == 0 {
		return nil, fmt.Errorf("no quote providers configured; set FINNHUB_API_KEY or ALPHA_VANTAGE_KEY")
	}

	refresher := &application.BatchRefresher{
		Providers: providers.Quotes,
		Store:     stores.Quotes,
		Pacer:     ratelimit.PerInterval(cfg.RequestDelay),
		ChunkWait: cfg.ChunkWait,
		Log:       log,
	}
	agg := application.NewAggregator(providers.News, log)

	svc := application.NewService(
		stores.Quotes, stores.News, stores.Earnings,
		agg, refresher, providers.Calendars, lock, log,
		application.WithNewsLookback(cfg.NewsLookback),
	)
	return svc, nil
}
