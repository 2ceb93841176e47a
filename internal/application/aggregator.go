package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"tmtresearch-service/internal/domain"

	"go.uber.org/zap"
)

// dedupHeadroom is how many extra items to request from each provider so
// dedup losses don't leave the merged set short of the requested limit.
const dedupHeadroom = 10

// Aggregator fans a news request out to every configured provider, merges
// the results and deduplicates them.
//
// Dedup keys, in order: canonical URL (lowercased, trimmed), then normalized
// headline. First occurrence wins, and the provider slice is an explicit
// priority list, so which copy survives is deterministic. Exact matching is
// deliberate: vendors republish identical wire-service stories verbatim, and
// fuzzy matching would suppress distinct stories.
type Aggregator struct {
	providers []NewsProvider
	log       *zap.Logger

	mu       sync.Mutex
	disabled map[string]bool
}

func NewAggregator(providers []NewsProvider, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{
		providers: providers,
		log:       log,
		disabled:  make(map[string]bool),
	}
}

func (a *Aggregator) active() []NewsProvider {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]NewsProvider, 0, len(a.providers))
	for _, p := range a.providers {
		if !a.disabled[p.Name()] {
			out = append(out, p)
		}
	}
	return out
}

func (a *Aggregator) disable(name string) {
	a.mu.Lock()
	a.disabled[name] = true
	a.mu.Unlock()
}

// Fetch queries each active provider for its share of limit, merges and
// dedups the results, and returns them sorted by PublishedAt descending.
// A failing provider degrades gracefully: the rest are still merged. An
// auth failure disables that provider for the remainder of the run.
func (a *Aggregator) Fetch(ctx context.Context, tickers []string, from time.Time, limit int) ([]domain.NewsItem, error) {
	providers := a.active()
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	if limit <= 0 {
		limit = 50
	}

	share := limit / len(providers)
	if share < 1 {
		share = 1
	}

	var merged []domain.NewsItem
	for _, p := range providers {
		items, err := p.News(ctx, tickers, from, share+dedupHeadroom)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isAuthErr(err) {
				a.log.Warn("news provider auth failed, disabling for this run",
					zap.String("provider", p.Name()), zap.Error(err))
				a.disable(p.Name())
			} else {
				a.log.Warn("news provider failed, continuing without it",
					zap.String("provider", p.Name()), zap.Error(err))
			}
			continue
		}
		merged = append(merged, items...)
	}

	deduped := dedup(merged)

	// Stable sort keeps provider priority as the tie-break for equal stamps.
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].PublishedAt.After(deduped[j].PublishedAt)
	})

	if len(deduped) > limit {
		deduped = deduped[:limit]
	}
	return deduped, nil
}

func dedup(items []domain.NewsItem) []domain.NewsItem {
	seenURLs := make(map[string]bool, len(items))
	seenHeadlines := make(map[string]bool, len(items))
	out := make([]domain.NewsItem, 0, len(items))

	for _, it := range items {
		u := domain.NormalizeURL(it.URL)
		h := domain.NormalizeHeadline(it.Headline)
		if u != "" && seenURLs[u] {
			continue
		}
		if h != "" && seenHeadlines[h] {
			continue
		}
		if u != "" {
			seenURLs[u] = true
		}
		if h != "" {
			seenHeadlines[h] = true
		}
		// Canonical representation is UTC from ingestion onward.
		it.PublishedAt = it.PublishedAt.UTC()
		out = append(out, it)
	}
	return out
}
