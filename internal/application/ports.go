package application

import (
	"context"
	"time"

	"tmtresearch-service/internal/domain"
)

type QuoteStore interface {
	Get(ctx context.Context, ticker string) (domain.Quote, error)
	Upsert(ctx context.Context, q domain.Quote) error
	// UpsertBatch writes one chunk atomically so partial progress survives
	// an interrupted refresh at chunk granularity.
	UpsertBatch(ctx context.Context, quotes []domain.Quote) error
	// ListFresh returns rows with updated_at after cutoff, ordered by ticker.
	ListFresh(ctx context.Context, cutoff time.Time) ([]domain.Quote, error)
}

type NewsStore interface {
	// Insert is idempotent on non-empty URL; it reports whether a row was
	// actually written.
	Insert(ctx context.Context, item domain.NewsItem) (bool, error)
	List(ctx context.Context, tickers []string, limit int) ([]domain.NewsItem, error)
}

type EarningsStore interface {
	Insert(ctx context.Context, ev domain.EarningsEvent) error
	List(ctx context.Context, status domain.EarningsStatus, limit int) ([]domain.EarningsEvent, error)
}

type CompanyStore interface {
	ListTickers(ctx context.Context) ([]string, error)
}

type QuoteProvider interface {
	Name() string
	Quote(ctx context.Context, ticker string) (domain.Quote, error)
}

type NewsProvider interface {
	Name() string
	News(ctx context.Context, tickers []string, from time.Time, limit int) ([]domain.NewsItem, error)
}

type EarningsProvider interface {
	Name() string
	Calendar(ctx context.Context, from, to time.Time) ([]domain.EarningsEvent, error)
}

// RefreshLock serializes refresh triggers across processes so two refreshes
// never write the cache store concurrently.
type RefreshLock interface {
	// TryAcquire returns true if key was absent and is now held.
	TryAcquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// NoopLock always acquires; useful for tests/dev when Redis is disabled.
type NoopLock struct{}

func (NoopLock) TryAcquire(context.Context, string) (bool, error) { return true, nil }
func (NoopLock) Release(context.Context, string) error            { return nil }

// Pacer gates outbound provider requests to stay under per-minute quotas.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NoopPacer never waits.
type NoopPacer struct{}

func (NoopPacer) Wait(context.Context) error { return nil }
