package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tmtresearch-service/internal/domain"

	"go.uber.org/zap"
)

const refreshLockKey = "refresh:quotes"

// VolatileReport is the read surface over the quote cache: fresh rows whose
// absolute percent change clears the threshold, partitioned into gainers and
// losers. NeedsRefresh distinguishes "no movers" from "no usable data".
type VolatileReport struct {
	Gainers       []domain.Quote
	Losers        []domain.Quote
	TotalChecked  int
	VolatileCount int
	CacheAge      string
	LatestUpdate  *time.Time
	NeedsRefresh  bool
}

type Service struct {
	quotes    QuoteStore
	news      NewsStore
	earnings  EarningsStore
	agg       *Aggregator
	refresher *BatchRefresher
	calendars []EarningsProvider
	lock      RefreshLock
	clock     Clock
	log       *zap.Logger

	newsLookback time.Duration
}

type Option func(*Service)

func WithClock(c Clock) Option { return func(s *Service) { s.clock = c } }

func WithNewsLookback(d time.Duration) Option {
	return func(s *Service) { s.newsLookback = d }
}

func NewService(quotes QuoteStore, news NewsStore, earnings EarningsStore,
	agg *Aggregator, refresher *BatchRefresher, calendars []EarningsProvider,
	lock RefreshLock, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		quotes:       quotes,
		news:         news,
		earnings:     earnings,
		agg:          agg,
		refresher:    refresher,
		calendars:    calendars,
		lock:         lock,
		log:          log,
		newsLookback: 3 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.lock == nil {
		s.lock = NoopLock{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *Service) GetQuote(ctx context.Context, ticker string) (domain.Quote, error) {
	if !domain.ValidateTicker(ticker) {
		return domain.Quote{}, fmt.Errorf("%w: %q", domain.ErrInvalidTicker, ticker)
	}
	return s.quotes.Get(ctx, ticker)
}

// GetVolatile returns fresh cached quotes moving at least threshold percent,
// gainers sorted descending and losers ascending by percent change. Rows
// older than maxAge are excluded; when none remain the report carries
// NeedsRefresh=true so callers can tell an empty market from an empty cache.
func (s *Service) GetVolatile(ctx context.Context, threshold float64, maxAge time.Duration) (VolatileReport, error) {
	cutoff := s.clock.Now().Add(-maxAge)
	rows, err := s.quotes.ListFresh(ctx, cutoff)
	if err != nil {
		return VolatileReport{}, err
	}
	if len(rows) == 0 {
		return VolatileReport{NeedsRefresh: true, CacheAge: "no data"}, nil
	}

	var report VolatileReport
	var latest time.Time
	for _, q := range rows {
		if q.UpdatedAt.After(latest) {
			latest = q.UpdatedAt
		}
		switch {
		case q.ChangePercent >= threshold:
			report.Gainers = append(report.Gainers, q)
		case q.ChangePercent <= -threshold:
			report.Losers = append(report.Losers, q)
		}
	}

	sort.Slice(report.Gainers, func(i, j int) bool {
		return report.Gainers[i].ChangePercent > report.Gainers[j].ChangePercent
	})
	sort.Slice(report.Losers, func(i, j int) bool {
		return report.Losers[i].ChangePercent < report.Losers[j].ChangePercent
	})

	report.TotalChecked = len(rows)
	report.VolatileCount = len(report.Gainers) + len(report.Losers)
	report.LatestUpdate = &latest
	report.CacheAge = formatAge(s.clock.Now().Sub(latest))
	return report, nil
}

func formatAge(age time.Duration) string {
	mins := int(age.Minutes())
	if mins < 0 {
		mins = 0
	}
	if mins < 60 {
		return fmt.Sprintf("%d min ago", mins)
	}
	return fmt.Sprintf("%dh %dm ago", mins/60, mins%60)
}

// Refresh runs a full batch refresh synchronously under the single-flight
// lock. Concurrent triggers get ErrRefreshInProgress instead of becoming a
// second writer.
func (s *Service) Refresh(ctx context.Context, tickers []string, chunkSize int) error {
	if len(tickers) == 0 {
		return fmt.Errorf("%w: no tickers", ErrBadRequest)
	}
	ok, err := s.lock.TryAcquire(ctx, refreshLockKey)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRefreshInProgress
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), refreshLockKey); err != nil {
			s.log.Warn("refresh lock release failed", zap.Error(err))
		}
	}()
	return s.refresher.Run(ctx, tickers, chunkSize)
}

// RefreshAsync acquires the lock and starts the refresh in the background.
// The HTTP trigger surface returns immediately; callers poll the cache store
// for progress.
func (s *Service) RefreshAsync(tickers []string, chunkSize int) error {
	if len(tickers) == 0 {
		return fmt.Errorf("%w: no tickers", ErrBadRequest)
	}
	ctx := context.Background()
	ok, err := s.lock.TryAcquire(ctx, refreshLockKey)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRefreshInProgress
	}
	go func() {
		defer func() {
			if err := s.lock.Release(ctx, refreshLockKey); err != nil {
				s.log.Warn("refresh lock release failed", zap.Error(err))
			}
		}()
		if err := s.refresher.Run(ctx, tickers, chunkSize); err != nil {
			s.log.Error("background refresh failed", zap.Error(err))
		}
	}()
	return nil
}

// SyncNews aggregates news for tickers and persists it, returning how many
// items were newly inserted. Inserts are idempotent on URL, so re-syncing
// the same window is safe.
func (s *Service) SyncNews(ctx context.Context, tickers []string, limit int) (int, error) {
	items, err := s.agg.Fetch(ctx, tickers, s.clock.Now().Add(-s.newsLookback), limit)
	if err != nil {
		return 0, err
	}
	inserted := 0
	for _, it := range items {
		ok, err := s.news.Insert(ctx, it)
		if err != nil {
			s.log.Warn("news insert failed",
				zap.String("headline", it.Headline), zap.Error(err))
			continue
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

func (s *Service) GetNews(ctx context.Context, tickers []string, limit int) ([]domain.NewsItem, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.news.List(ctx, tickers, limit)
}

// SyncEarnings pulls the earnings calendar for the given horizon from every
// configured provider and persists it. One failing provider degrades
// gracefully; its events are simply missing until the next sync.
func (s *Service) SyncEarnings(ctx context.Context, horizon string) (int, error) {
	if len(s.calendars) == 0 {
		return 0, ErrNoProviders
	}
	from := s.clock.Now()
	to := from.Add(horizonDuration(horizon))

	inserted := 0
	for _, p := range s.calendars {
		events, err := p.Calendar(ctx, from, to)
		if err != nil {
			if ctx.Err() != nil {
				return inserted, ctx.Err()
			}
			s.log.Warn("earnings provider failed, continuing without it",
				zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		for _, ev := range events {
			if err := s.earnings.Insert(ctx, ev); err != nil {
				s.log.Warn("earnings insert failed",
					zap.String("ticker", ev.Ticker), zap.Error(err))
				continue
			}
			inserted++
		}
	}
	return inserted, nil
}

func horizonDuration(horizon string) time.Duration {
	switch horizon {
	case "6month":
		return 180 * 24 * time.Hour
	case "12month":
		return 365 * 24 * time.Hour
	default: // 3month
		return 90 * 24 * time.Hour
	}
}

func (s *Service) GetEarnings(ctx context.Context, status domain.EarningsStatus, limit int) ([]domain.EarningsEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.earnings.List(ctx, status, limit)
}
