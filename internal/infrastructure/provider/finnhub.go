package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"tmtresearch-service/internal/application"
	"tmtresearch-service/internal/domain"
	"tmtresearch-service/internal/infrastructure/httpx"

	"go.uber.org/zap"
)

// Finnhub serves quotes, company news and the earnings calendar from one
// credential. The same instance is wired into all three provider ports.
type Finnhub struct {
	BaseURL string
	APIKey  string
	Client  *httpx.Client
	Log     *zap.Logger
}

var _ application.QuoteProvider = (*Finnhub)(nil)
var _ application.NewsProvider = (*Finnhub)(nil)
var _ application.EarningsProvider = (*Finnhub)(nil)

func (f *Finnhub) Name() string { return "finnhub" }

func (f *Finnhub) logger() *zap.Logger {
	if f.Log == nil {
		return zap.NewNop()
	}
	return f.Log
}

func (f *Finnhub) get(ctx context.Context, path string, query url.Values, out any) error {
	if f.APIKey == "" {
		return fmt.Errorf("%w: finnhub: missing api key", domain.ErrAuth)
	}
	u, err := url.Parse(f.BaseURL)
	if err != nil {
		return fmt.Errorf("finnhub: invalid base url: %w", err)
	}
	u.Path += path
	query.Set("token", f.APIKey)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("finnhub: create request: %w", err)
	}
	return f.Client.DoJSON(ctx, req, out)
}

type fhQuoteResp struct {
	Current       float64 `json:"c"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
	Volume        int64   `json:"v"`
}

// Quote fetches /quote and derives change and percent change from the
// current and previous close, so the sign invariant holds by construction.
func (f *Finnhub) Quote(ctx context.Context, ticker string) (domain.Quote, error) {
	var body fhQuoteResp
	q := url.Values{}
	q.Set("symbol", ticker)
	if err := f.get(ctx, "/quote", q, &body); err != nil {
		return domain.Quote{}, err
	}
	// Finnhub answers 200 with zeroed fields for unknown symbols.
	if body.Current == 0 {
		return domain.Quote{}, fmt.Errorf("%w: finnhub: no quote for %s", domain.ErrFormat, ticker)
	}

	change := body.Current - body.PreviousClose
	var changePct float64
	if body.PreviousClose > 0 {
		changePct = change / body.PreviousClose * 100
	}

	updatedAt := time.Now().UTC()
	if body.Timestamp > 0 {
		updatedAt = time.Unix(body.Timestamp, 0).UTC()
	}

	return domain.Quote{
		Ticker:        ticker,
		Price:         body.Current,
		Change:        change,
		ChangePercent: changePct,
		Volume:        body.Volume,
		PreviousClose: body.PreviousClose,
		Source:        "Finnhub",
		UpdatedAt:     updatedAt,
	}, nil
}

type fhNewsItem struct {
	Category string `json:"category"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// News fetches company news per ticker and distributes the limit across
// tickers, giving the remainder to the first few so totals come out even.
func (f *Finnhub) News(ctx context.Context, tickers []string, from time.Time, limit int) ([]domain.NewsItem, error) {
	if len(tickers) == 0 {
		tickers = []string{"AAPL", "MSFT", "GOOGL", "META", "AMZN", "NVDA"}
	}
	if len(tickers) > 10 {
		tickers = tickers[:10]
	}
	if limit <= 0 {
		limit = 50
	}

	base := limit / len(tickers)
	remainder := limit % len(tickers)

	var all []domain.NewsItem
	for idx, ticker := range tickers {
		want := base
		if idx < remainder {
			want++
		}
		if want == 0 {
			continue
		}

		var items []fhNewsItem
		q := url.Values{}
		q.Set("symbol", ticker)
		q.Set("from", from.Format("2006-01-02"))
		q.Set("to", time.Now().UTC().Format("2006-01-02"))
		if err := f.get(ctx, "/company-news", q, &items); err != nil {
			return nil, err
		}
		if len(items) > want {
			items = items[:want]
		}
		for _, it := range items {
			norm, err := f.normalizeNews(it)
			if err != nil {
				f.logger().Warn("finnhub: skipping malformed news entry", zap.Error(err))
				continue
			}
			all = append(all, norm)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].PublishedAt.After(all[j].PublishedAt)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *Finnhub) normalizeNews(it fhNewsItem) (domain.NewsItem, error) {
	if it.Headline == "" {
		return domain.NewsItem{}, fmt.Errorf("%w: empty headline", domain.ErrFormat)
	}
	published := time.Now().UTC()
	if it.Datetime > 0 {
		published = time.Unix(it.Datetime, 0).UTC()
	}
	company := it.Related
	if company == "" {
		company = "TMT"
	}
	source := it.Source
	if source == "" {
		source = "Finnhub"
	}
	return domain.NewsItem{
		PublishedAt: published,
		Sector:      "Technology",
		Company:     company,
		Headline:    it.Headline,
		Summary:     it.Summary,
		Source:      source,
		URL:         it.URL,
		Provenance:  domain.ProvenanceWire,
	}, nil
}

type fhEarningsResp struct {
	EarningsCalendar []fhEarningsItem `json:"earningsCalendar"`
}

type fhEarningsItem struct {
	Symbol          string   `json:"symbol"`
	Date            string   `json:"date"`
	EPSActual       *float64 `json:"epsActual"`
	EPSEstimate     *float64 `json:"epsEstimate"`
	RevenueActual   *float64 `json:"revenueActual"`
	RevenueEstimate *float64 `json:"revenueEstimate"`
	Quarter         int      `json:"quarter"`
	Year            int      `json:"year"`
}

func (f *Finnhub) Calendar(ctx context.Context, from, to time.Time) ([]domain.EarningsEvent, error) {
	var body fhEarningsResp
	q := url.Values{}
	q.Set("from", from.Format("2006-01-02"))
	q.Set("to", to.Format("2006-01-02"))
	if err := f.get(ctx, "/calendar/earnings", q, &body); err != nil {
		return nil, err
	}

	out := make([]domain.EarningsEvent, 0, len(body.EarningsCalendar))
	for _, it := range body.EarningsCalendar {
		ev, err := f.normalizeEarnings(it)
		if err != nil {
			f.logger().Warn("finnhub: skipping malformed earnings entry", zap.Error(err))
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (f *Finnhub) normalizeEarnings(it fhEarningsItem) (domain.EarningsEvent, error) {
	if it.Symbol == "" {
		return domain.EarningsEvent{}, fmt.Errorf("%w: empty symbol", domain.ErrFormat)
	}
	date, err := time.Parse("2006-01-02", it.Date)
	if err != nil {
		return domain.EarningsEvent{}, fmt.Errorf("%w: date %q", domain.ErrFormat, it.Date)
	}

	quarter := "Q?"
	if it.Year > 0 && it.Quarter > 0 {
		quarter = fmt.Sprintf("%d-Q%d", it.Year, it.Quarter)
	}

	ev := domain.EarningsEvent{
		Ticker:           it.Symbol,
		Company:          it.Symbol,
		Sector:           "Technology",
		Date:             date.UTC(),
		Quarter:          quarter,
		ConsensusEPS:     floatOrNA(it.EPSEstimate),
		ConsensusRevenue: floatOrNA(it.RevenueEstimate),
		Status:           domain.EarningsUpcoming,
	}
	if it.EPSActual != nil {
		actual := fmt.Sprintf("%g", *it.EPSActual)
		ev.ActualEPS = &actual
		ev.Status = domain.EarningsReported
		ev.BeatMiss = beatMiss(*it.EPSActual, it.EPSEstimate)
	}
	if it.RevenueActual != nil {
		rev := fmt.Sprintf("%g", *it.RevenueActual)
		ev.ActualRevenue = &rev
	}
	return ev, nil
}

func floatOrNA(f *float64) string {
	if f == nil {
		return "N/A"
	}
	return fmt.Sprintf("%g", *f)
}

func beatMiss(actual float64, estimate *float64) *string {
	verdict := "N/A"
	if estimate != nil {
		if actual >= *estimate {
			verdict = "Beat"
		} else {
			verdict = "Miss"
		}
	}
	return &verdict
}
