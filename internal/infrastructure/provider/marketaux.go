package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tmtresearch-service/internal/application"
	"tmtresearch-service/internal/domain"
	"tmtresearch-service/internal/infrastructure/httpx"

	"go.uber.org/zap"
)

// marketauxSymbolBatch is the vendor's per-request symbol cap.
const marketauxSymbolBatch = 10

// Marketaux is a news-only provider. Requests carry at most ten symbols, so
// larger ticker lists are split into batches with the limit divided evenly.
type Marketaux struct {
	BaseURL string
	APIKey  string
	Client  *httpx.Client
	Log     *zap.Logger
}

var _ application.NewsProvider = (*Marketaux)(nil)

func (m *Marketaux) Name() string { return "marketaux" }

func (m *Marketaux) logger() *zap.Logger {
	if m.Log == nil {
		return zap.NewNop()
	}
	return m.Log
}

type mxResp struct {
	Data []mxArticle `json:"data"`
}

type mxArticle struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	PublishedAt string     `json:"published_at"`
	Entities    []mxEntity `json:"entities"`
}

type mxEntity struct {
	Symbol string `json:"symbol"`
}

func (m *Marketaux) News(ctx context.Context, tickers []string, from time.Time, limit int) ([]domain.NewsItem, error) {
	if m.APIKey == "" {
		return nil, fmt.Errorf("%w: marketaux: missing api key", domain.ErrAuth)
	}
	if limit <= 0 {
		limit = 50
	}

	batches := [][]string{tickers}
	if len(tickers) > marketauxSymbolBatch {
		batches = nil
		for start := 0; start < len(tickers); start += marketauxSymbolBatch {
			end := min(start+marketauxSymbolBatch, len(tickers))
			batches = append(batches, tickers[start:end])
		}
	}
	perBatch := max(1, limit/len(batches))

	var raw []mxArticle
	for _, batch := range batches {
		params := url.Values{}
		params.Set("api_token", m.APIKey)
		params.Set("language", "en")
		params.Set("published_after", from.Format("2006-01-02"))
		params.Set("limit", strconv.Itoa(perBatch))
		if len(batch) > 0 {
			params.Set("symbols", strings.Join(batch, ","))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.BaseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("marketaux: create request: %w", err)
		}
		var body mxResp
		if err := m.Client.DoJSON(ctx, req, &body); err != nil {
			if ctx.Err() != nil || len(raw) == 0 {
				return nil, err
			}
			// Keep what earlier batches already produced.
			m.logger().Warn("marketaux: batch failed", zap.Error(err))
			continue
		}
		raw = append(raw, body.Data...)
	}

	out := make([]domain.NewsItem, 0, len(raw))
	for _, it := range raw {
		if len(out) >= limit {
			break
		}
		norm, err := m.normalize(it)
		if err != nil {
			m.logger().Warn("marketaux: skipping malformed news entry", zap.Error(err))
			continue
		}
		out = append(out, norm)
	}
	return out, nil
}

func (m *Marketaux) normalize(it mxArticle) (domain.NewsItem, error) {
	if it.Title == "" {
		return domain.NewsItem{}, fmt.Errorf("%w: empty title", domain.ErrFormat)
	}
	published, err := time.Parse(time.RFC3339, it.PublishedAt)
	if err != nil {
		return domain.NewsItem{}, fmt.Errorf("%w: published_at %q", domain.ErrFormat, it.PublishedAt)
	}

	symbols := make([]string, 0, 3)
	for _, e := range it.Entities {
		if len(symbols) == 3 {
			break
		}
		if e.Symbol != "" {
			symbols = append(symbols, e.Symbol)
		}
	}
	company := strings.Join(symbols, ", ")
	if company == "" {
		company = "TMT"
	}
	source := it.Source
	if source == "" {
		source = "Marketaux"
	}

	return domain.NewsItem{
		PublishedAt: published.UTC(),
		Sector:      "Technology",
		Company:     company,
		Headline:    it.Title,
		Summary:     it.Description,
		Source:      source,
		URL:         it.URL,
		Provenance:  domain.ProvenanceWire,
	}, nil
}
