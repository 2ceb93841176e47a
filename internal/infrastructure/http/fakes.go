package httpserver

import (
	"context"
	"sort"
	"time"

	"tmtresearch-service/internal/application"
	"tmtresearch-service/internal/domain"
)

var _ application.QuoteStore = (*fakeQuoteStore)(nil)
var _ application.NewsStore = (*fakeNewsStore)(nil)
var _ application.EarningsStore = (*fakeEarningsStore)(nil)
var _ application.QuoteProvider = (*fakeQuoteProvider)(nil)
var _ application.NewsProvider = (*fakeNewsProvider)(nil)

type fakeQuoteStore struct {
	store map[string]domain.Quote
}

func (f *fakeQuoteStore) Get(_ context.Context, ticker string) (domain.Quote, error) {
	q, ok := f.store[ticker]
	if !ok {
		return domain.Quote{}, application.ErrNotFound
	}
	return q, nil
}

func (f *fakeQuoteStore) Upsert(_ context.Context, q domain.Quote) error {
	if f.store == nil {
		f.store = map[string]domain.Quote{}
	}
	f.store[q.Ticker] = q
	return nil
}

func (f *fakeQuoteStore) UpsertBatch(ctx context.Context, quotes []domain.Quote) error {
	for _, q := range quotes {
		if err := f.Upsert(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeQuoteStore) ListFresh(_ context.Context, cutoff time.Time) ([]domain.Quote, error) {
	var out []domain.Quote
	for _, q := range f.store {
		if q.UpdatedAt.After(cutoff) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

type fakeNewsStore struct {
	items []domain.NewsItem
	urls  map[string]bool
}

func (f *fakeNewsStore) Insert(_ context.Context, item domain.NewsItem) (bool, error) {
	if f.urls == nil {
		f.urls = map[string]bool{}
	}
	if item.URL != "" && f.urls[item.URL] {
		return false, nil
	}
	if item.URL != "" {
		f.urls[item.URL] = true
	}
	f.items = append(f.items, item)
	return true, nil
}

func (f *fakeNewsStore) List(_ context.Context, _ []string, limit int) ([]domain.NewsItem, error) {
	out := make([]domain.NewsItem, len(f.items))
	copy(out, f.items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeEarningsStore struct {
	events []domain.EarningsEvent
}

func (f *fakeEarningsStore) Insert(_ context.Context, ev domain.EarningsEvent) error {
	for i, old := range f.events {
		if old.Ticker == ev.Ticker && old.Date.Equal(ev.Date) {
			f.events[i] = ev
			return nil
		}
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEarningsStore) List(_ context.Context, status domain.EarningsStatus, limit int) ([]domain.EarningsEvent, error) {
	var out []domain.EarningsEvent
	for _, ev := range f.events {
		if status == "" || ev.Status == status {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeQuoteProvider struct {
	quotes map[string]domain.Quote
}

func (f *fakeQuoteProvider) Name() string { return "fake" }

func (f *fakeQuoteProvider) Quote(_ context.Context, ticker string) (domain.Quote, error) {
	q, ok := f.quotes[ticker]
	if !ok {
		return domain.Quote{}, domain.ErrFormat
	}
	return q, nil
}

type fakeNewsProvider struct {
	items []domain.NewsItem
}

func (f *fakeNewsProvider) Name() string { return "fake" }

func (f *fakeNewsProvider) News(_ context.Context, _ []string, _ time.Time, limit int) ([]domain.NewsItem, error) {
	out := f.items
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// NewInMemoryService wires the service against in-memory stores and fake
// providers; handlers exercised in tests hit no network or database.
func NewInMemoryService() (*application.Service, *fakeQuoteStore, *fakeNewsStore, *fakeEarningsStore) {
	qs := &fakeQuoteStore{store: map[string]domain.Quote{}}
	ns := &fakeNewsStore{}
	es := &fakeEarningsStore{}

	provider := &fakeQuoteProvider{quotes: map[string]domain.Quote{}}
	agg := application.NewAggregator([]application.NewsProvider{&fakeNewsProvider{}}, nil)
	refresher := &application.BatchRefresher{
		Providers: []application.QuoteProvider{provider},
		Store:     qs,
	}
	svc := application.NewService(qs, ns, es, agg, refresher, nil, application.NoopLock{}, nil)
	return svc, qs, ns, es
}
