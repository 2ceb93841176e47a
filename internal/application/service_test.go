package application

import (
	"context"
	"testing"
	"time"

	"tmtresearch-service/internal/domain"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func newTestService(qs *fakeQuoteStore, ns *fakeNewsStore, es *fakeEarningsStore,
	news []NewsProvider, calendars []EarningsProvider, lock RefreshLock) *Service {
	if qs == nil {
		qs = &fakeQuoteStore{store: map[string]domain.Quote{}}
	}
	if ns == nil {
		ns = &fakeNewsStore{}
	}
	if es == nil {
		es = &fakeEarningsStore{}
	}
	agg := NewAggregator(news, nil)
	refresher := &BatchRefresher{
		Providers: []QuoteProvider{&fakeQuoteProvider{quotes: map[string]domain.Quote{}}},
		Store:     qs,
	}
	return NewService(qs, ns, es, agg, refresher, calendars, lock, nil,
		WithClock(fakeClock{t: testNow}))
}

func Test_GetQuote_InvalidTicker(t *testing.T) {
	t.Parallel()
	svc := newTestService(nil, nil, nil, nil, nil, nil)

	_, err := svc.GetQuote(context.Background(), "aapl!!")
	require.ErrorIs(t, err, domain.ErrInvalidTicker)
}

func Test_GetQuote_NotFound(t *testing.T) {
	t.Parallel()
	svc := newTestService(nil, nil, nil, nil, nil, nil)

	_, err := svc.GetQuote(context.Background(), "AAPL")
	require.ErrorIs(t, err, ErrNotFound)
}

func Test_GetVolatile_Partition(t *testing.T) {
	t.Parallel()
	qs := &fakeQuoteStore{store: map[string]domain.Quote{
		"AAPL": {Ticker: "AAPL", ChangePercent: 3.1, UpdatedAt: testNow.Add(-time.Minute)},
		"MSFT": {Ticker: "MSFT", ChangePercent: -4.2, UpdatedAt: testNow.Add(-time.Minute)},
		"GOOG": {Ticker: "GOOG", ChangePercent: 0.5, UpdatedAt: testNow.Add(-time.Minute)},
		"NVDA": {Ticker: "NVDA", ChangePercent: 7.9, UpdatedAt: testNow.Add(-time.Minute)},
	}}
	svc := newTestService(qs, nil, nil, nil, nil, nil)

	report, err := svc.GetVolatile(context.Background(), 2.0, 15*time.Minute)
	require.NoError(t, err)

	require.False(t, report.NeedsRefresh)
	require.Equal(t, 4, report.TotalChecked)
	require.Equal(t, 3, report.VolatileCount)

	// Gainers descending, losers ascending by percent change.
	require.Len(t, report.Gainers, 2)
	require.Equal(t, "NVDA", report.Gainers[0].Ticker)
	require.Equal(t, "AAPL", report.Gainers[1].Ticker)
	require.Len(t, report.Losers, 1)
	require.Equal(t, "MSFT", report.Losers[0].Ticker)

	// No ticker may appear on both sides.
	seen := map[string]bool{}
	for _, q := range report.Gainers {
		seen[q.Ticker] = true
	}
	for _, q := range report.Losers {
		require.False(t, seen[q.Ticker])
	}
}

func Test_GetVolatile_StaleRowsExcluded(t *testing.T) {
	t.Parallel()
	qs := &fakeQuoteStore{store: map[string]domain.Quote{
		"AAPL": {Ticker: "AAPL", ChangePercent: 5.0, UpdatedAt: testNow.Add(-2 * time.Hour)},
	}}
	svc := newTestService(qs, nil, nil, nil, nil, nil)

	report, err := svc.GetVolatile(context.Background(), 2.0, 15*time.Minute)
	require.NoError(t, err)
	require.True(t, report.NeedsRefresh)
	require.Equal(t, "no data", report.CacheAge)
	require.Empty(t, report.Gainers)
	require.Empty(t, report.Losers)
}

func Test_GetVolatile_CacheAge(t *testing.T) {
	t.Parallel()
	qs := &fakeQuoteStore{store: map[string]domain.Quote{
		"AAPL": {Ticker: "AAPL", ChangePercent: 0.1, UpdatedAt: testNow.Add(-5 * time.Minute)},
	}}
	svc := newTestService(qs, nil, nil, nil, nil, nil)

	report, err := svc.GetVolatile(context.Background(), 2.0, 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, "5 min ago", report.CacheAge)
	require.NotNil(t, report.LatestUpdate)
	require.Equal(t, testNow.Add(-5*time.Minute), *report.LatestUpdate)
}

func Test_FormatAge_Hours(t *testing.T) {
	t.Parallel()
	require.Equal(t, "0 min ago", formatAge(30*time.Second))
	require.Equal(t, "59 min ago", formatAge(59*time.Minute))
	require.Equal(t, "1h 30m ago", formatAge(90*time.Minute))
	require.Equal(t, "2h 0m ago", formatAge(2*time.Hour))
}

func Test_Refresh_LockConflict(t *testing.T) {
	t.Parallel()
	lock := &fakeLock{held: true}
	svc := newTestService(nil, nil, nil, nil, nil, lock)

	err := svc.Refresh(context.Background(), []string{"AAPL"}, 10)
	require.ErrorIs(t, err, ErrRefreshInProgress)
	require.Equal(t, 0, lock.releases)
}

func Test_Refresh_ReleasesLock(t *testing.T) {
	t.Parallel()
	lock := &fakeLock{}
	qs := &fakeQuoteStore{store: map[string]domain.Quote{}}
	svc := newTestService(qs, nil, nil, nil, nil, lock)

	err := svc.Refresh(context.Background(), []string{"AAPL"}, 10)
	require.NoError(t, err)
	require.Equal(t, 1, lock.acquires)
	require.Equal(t, 1, lock.releases)
	require.False(t, lock.held)
}

func Test_Refresh_NoTickers(t *testing.T) {
	t.Parallel()
	svc := newTestService(nil, nil, nil, nil, nil, nil)

	err := svc.Refresh(context.Background(), nil, 10)
	require.ErrorIs(t, err, ErrBadRequest)
}

func Test_SyncNews_CountsOnlyNewInserts(t *testing.T) {
	t.Parallel()
	ns := &fakeNewsStore{}
	p := &fakeNewsProvider{items: []domain.NewsItem{
		newsAt("Apple ships", "https://example.com/a", testNow.Add(-time.Hour)),
		newsAt("Microsoft ships", "https://example.com/b", testNow.Add(-2*time.Hour)),
	}}
	svc := newTestService(nil, ns, nil, []NewsProvider{p}, nil, nil)

	inserted, err := svc.SyncNews(context.Background(), []string{"AAPL"}, 10)
	require.NoError(t, err)
	require.Equal(t, 2, inserted)

	// Second sync over the same window inserts nothing new.
	inserted, err = svc.SyncNews(context.Background(), []string{"AAPL"}, 10)
	require.NoError(t, err)
	require.Equal(t, 0, inserted)
	require.Len(t, ns.items, 2)
}

func Test_SyncEarnings_ProviderDegrades(t *testing.T) {
	t.Parallel()
	es := &fakeEarningsStore{}
	bad := &fakeEarningsProvider{name: "bad", err: domain.ErrTransport}
	good := &fakeEarningsProvider{name: "good", events: []domain.EarningsEvent{
		{Ticker: "AAPL", Date: testNow.AddDate(0, 0, 7), Status: domain.EarningsUpcoming},
	}}
	svc := newTestService(nil, nil, es, nil, []EarningsProvider{bad, good}, nil)

	inserted, err := svc.SyncEarnings(context.Background(), "3month")
	require.NoError(t, err)
	require.Equal(t, 1, inserted)
	require.Len(t, es.events, 1)
}

func Test_SyncEarnings_NoProviders(t *testing.T) {
	t.Parallel()
	svc := newTestService(nil, nil, nil, nil, nil, nil)

	_, err := svc.SyncEarnings(context.Background(), "3month")
	require.ErrorIs(t, err, ErrNoProviders)
}

func Test_HorizonDuration(t *testing.T) {
	t.Parallel()
	require.Equal(t, 90*24*time.Hour, horizonDuration(""))
	require.Equal(t, 90*24*time.Hour, horizonDuration("3month"))
	require.Equal(t, 180*24*time.Hour, horizonDuration("6month"))
	require.Equal(t, 365*24*time.Hour, horizonDuration("12month"))
}
