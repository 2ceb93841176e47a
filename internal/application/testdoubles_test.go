package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"tmtresearch-service/internal/domain"
)

var ErrStore = errors.New("store error")

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

type fakeQuoteStore struct {
	mu      sync.Mutex
	store   map[string]domain.Quote
	batches [][]domain.Quote
	err     error
}

func (f *fakeQuoteStore) Get(_ context.Context, ticker string) (domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Quote{}, f.err
	}
	q, ok := f.store[ticker]
	if !ok {
		return domain.Quote{}, ErrNotFound
	}
	return q, nil
}

func (f *fakeQuoteStore) Upsert(_ context.Context, q domain.Quote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.put(q)
	return nil
}

func (f *fakeQuoteStore) put(q domain.Quote) {
	if f.store == nil {
		f.store = map[string]domain.Quote{}
	}
	f.store[q.Ticker] = q
}

func (f *fakeQuoteStore) UpsertBatch(_ context.Context, quotes []domain.Quote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, quotes)
	for _, q := range quotes {
		f.put(q)
	}
	return nil
}

func (f *fakeQuoteStore) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func (f *fakeQuoteStore) ListFresh(_ context.Context, cutoff time.Time) ([]domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
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
	err   error
}

func (f *fakeNewsStore) Insert(_ context.Context, item domain.NewsItem) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
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
	if f.err != nil {
		return nil, f.err
	}
	out := f.items
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeEarningsStore struct {
	events []domain.EarningsEvent
	err    error
}

func (f *fakeEarningsStore) Insert(_ context.Context, ev domain.EarningsEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEarningsStore) List(_ context.Context, status domain.EarningsStatus, limit int) ([]domain.EarningsEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.EarningsEvent
	for _, ev := range f.events {
		if status == "" || ev.Status == status {
			out = append(out, ev)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeQuoteProvider struct {
	name   string
	quotes map[string]domain.Quote
	err    error
	calls  []string
}

func (f *fakeQuoteProvider) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeQuoteProvider) Quote(_ context.Context, ticker string) (domain.Quote, error) {
	f.calls = append(f.calls, ticker)
	if f.err != nil {
		return domain.Quote{}, f.err
	}
	q, ok := f.quotes[ticker]
	if !ok {
		return domain.Quote{}, fmt.Errorf("%w: no quote for %s", domain.ErrFormat, ticker)
	}
	return q, nil
}

type fakeNewsProvider struct {
	name  string
	items []domain.NewsItem
	err   error
	calls int
}

func (f *fakeNewsProvider) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeNewsProvider) News(_ context.Context, _ []string, _ time.Time, limit int) ([]domain.NewsItem, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := f.items
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeEarningsProvider struct {
	name   string
	events []domain.EarningsEvent
	err    error
}

func (f *fakeEarningsProvider) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeEarningsProvider) Calendar(context.Context, time.Time, time.Time) ([]domain.EarningsEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

// fakeLock counts acquisitions and releases; held simulates a lock another
// process owns.
type fakeLock struct {
	held     bool
	acquires int
	releases int
	err      error
}

func (f *fakeLock) TryAcquire(context.Context, string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.acquires++
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context, string) error {
	f.releases++
	f.held = false
	return nil
}

func newsAt(headline, url string, at time.Time) domain.NewsItem {
	return domain.NewsItem{
		PublishedAt: at,
		Sector:      "Technology",
		Company:     "AAPL",
		Headline:    headline,
		Source:      "test",
		URL:         url,
		Provenance:  domain.ProvenanceWire,
	}
}
