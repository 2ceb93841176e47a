package provider

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
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

// AlphaVantage serves quotes, news sentiment and the earnings calendar.
// All three ride one query endpoint distinguished by the function parameter.
// Free-tier quirks handled here: rate limits arrive as HTTP 200 with a
// "Note" field, percent changes are strings with a trailing '%', and the
// earnings calendar is CSV.
type AlphaVantage struct {
	BaseURL string
	APIKey  string
	Client  *httpx.Client
	Log     *zap.Logger
}

var _ application.QuoteProvider = (*AlphaVantage)(nil)
var _ application.NewsProvider = (*AlphaVantage)(nil)
var _ application.EarningsProvider = (*AlphaVantage)(nil)

func (a *AlphaVantage) Name() string { return "alphavantage" }

func (a *AlphaVantage) logger() *zap.Logger {
	if a.Log == nil {
		return zap.NewNop()
	}
	return a.Log
}

func (a *AlphaVantage) request(ctx context.Context, params url.Values) (*http.Request, error) {
	if a.APIKey == "" {
		return nil, fmt.Errorf("%w: alphavantage: missing api key", domain.ErrAuth)
	}
	u, err := url.Parse(a.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("alphavantage: invalid base url: %w", err)
	}
	params.Set("apikey", a.APIKey)
	u.RawQuery = params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("alphavantage: create request: %w", err)
	}
	return req, nil
}

// avEnvelope catches the error shapes Alpha Vantage hides behind HTTP 200.
type avEnvelope struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

func (e avEnvelope) err() error {
	switch {
	case e.Note != "":
		return fmt.Errorf("%w: alphavantage: %s", domain.ErrRateLimit, e.Note)
	case e.ErrorMessage != "":
		return fmt.Errorf("%w: alphavantage: %s", domain.ErrFormat, e.ErrorMessage)
	case e.Information != "":
		return fmt.Errorf("%w: alphavantage: %s", domain.ErrRateLimit, e.Information)
	}
	return nil
}

type avGlobalQuote struct {
	avEnvelope
	GlobalQuote map[string]string `json:"Global Quote"`
}

// Quote fetches GLOBAL_QUOTE. The percent field arrives as "1.23%" and is
// normalized here, at the provider boundary, not downstream.
func (a *AlphaVantage) Quote(ctx context.Context, ticker string) (domain.Quote, error) {
	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", ticker)
	req, err := a.request(ctx, params)
	if err != nil {
		return domain.Quote{}, err
	}

	var body avGlobalQuote
	if err := a.Client.DoJSON(ctx, req, &body); err != nil {
		return domain.Quote{}, err
	}
	if err := body.err(); err != nil {
		return domain.Quote{}, err
	}
	if len(body.GlobalQuote) == 0 {
		return domain.Quote{}, fmt.Errorf("%w: alphavantage: no quote for %s", domain.ErrFormat, ticker)
	}

	g := body.GlobalQuote
	price := parseFloat(g["05. price"])
	change := parseFloat(g["09. change"])
	changePct := parseFloat(strings.TrimSuffix(g["10. change percent"], "%"))
	volume, _ := strconv.ParseInt(g["06. volume"], 10, 64)

	return domain.Quote{
		Ticker:        ticker,
		Price:         price,
		Change:        change,
		ChangePercent: changePct,
		Volume:        volume,
		PreviousClose: parseFloat(g["08. previous close"]),
		Source:        "Alpha Vantage",
		UpdatedAt:     time.Now().UTC(),
	}, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

type avNewsFeed struct {
	avEnvelope
	Feed []avNewsItem `json:"feed"`
}

type avNewsItem struct {
	Title           string            `json:"title"`
	URL             string            `json:"url"`
	TimePublished   string            `json:"time_published"`
	Summary         string            `json:"summary"`
	Source          string            `json:"source"`
	TickerSentiment []avTickerMention `json:"ticker_sentiment"`
}

type avTickerMention struct {
	Ticker string `json:"ticker"`
}

// News fetches NEWS_SENTIMENT. The vendor's own ticker filter is unreliable,
// so it over-fetches and filters client-side.
func (a *AlphaVantage) News(ctx context.Context, tickers []string, from time.Time, limit int) ([]domain.NewsItem, error) {
	if limit <= 0 {
		limit = 50
	}
	params := url.Values{}
	params.Set("function", "NEWS_SENTIMENT")
	params.Set("sort", "LATEST")
	params.Set("limit", strconv.Itoa(min(limit*3, 200)))
	req, err := a.request(ctx, params)
	if err != nil {
		return nil, err
	}

	var body avNewsFeed
	if err := a.Client.DoJSON(ctx, req, &body); err != nil {
		return nil, err
	}
	if err := body.err(); err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		wanted[t] = true
	}

	var out []domain.NewsItem
	for _, it := range body.Feed {
		if len(out) >= limit {
			break
		}
		norm, err := a.normalizeNews(it)
		if err != nil {
			a.logger().Warn("alphavantage: skipping malformed news entry", zap.Error(err))
			continue
		}
		if norm.PublishedAt.Before(from) {
			continue
		}
		if len(wanted) > 0 && !mentionsAny(it.TickerSentiment, wanted) {
			continue
		}
		out = append(out, norm)
	}
	return out, nil
}

func mentionsAny(mentions []avTickerMention, wanted map[string]bool) bool {
	for _, m := range mentions {
		if wanted[m.Ticker] {
			return true
		}
	}
	return false
}

func (a *AlphaVantage) normalizeNews(it avNewsItem) (domain.NewsItem, error) {
	if it.Title == "" {
		return domain.NewsItem{}, fmt.Errorf("%w: empty title", domain.ErrFormat)
	}
	published := time.Now().UTC()
	if t, err := time.Parse("20060102T150405", it.TimePublished); err == nil {
		published = t.UTC()
	}

	companies := make([]string, 0, 3)
	for _, m := range it.TickerSentiment {
		if len(companies) == 3 {
			break
		}
		if m.Ticker != "" {
			companies = append(companies, m.Ticker)
		}
	}
	company := strings.Join(companies, ", ")
	if company == "" {
		company = "TMT"
	}
	source := it.Source
	if source == "" {
		source = "Alpha Vantage"
	}

	return domain.NewsItem{
		PublishedAt: published,
		Sector:      "Technology",
		Company:     company,
		Headline:    it.Title,
		Summary:     it.Summary,
		Source:      source,
		URL:         it.URL,
		Provenance:  domain.ProvenanceWire,
	}, nil
}

// Calendar fetches EARNINGS_CALENDAR, which answers in CSV:
// symbol,name,reportDate,fiscalDateEnding,estimate,currency
func (a *AlphaVantage) Calendar(ctx context.Context, from, to time.Time) ([]domain.EarningsEvent, error) {
	params := url.Values{}
	params.Set("function", "EARNINGS_CALENDAR")
	params.Set("horizon", horizonFor(to.Sub(from)))
	req, err := a.request(ctx, params)
	if err != nil {
		return nil, err
	}

	body, err := a.Client.DoBody(ctx, req)
	if err != nil {
		return nil, err
	}
	// Rate-limit notes come back as JSON even on the CSV endpoint.
	if bytes.HasPrefix(bytes.TrimSpace(body), []byte("{")) {
		var env avEnvelope
		if json.Unmarshal(body, &env) == nil {
			if err := env.err(); err != nil {
				return nil, err
			}
		}
		return nil, fmt.Errorf("%w: alphavantage: expected csv", domain.ErrFormat)
	}

	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: alphavantage: csv header: %v", domain.ErrFormat, err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	var out []domain.EarningsEvent
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			a.logger().Warn("alphavantage: skipping malformed earnings row", zap.Error(err))
			continue
		}
		ev, err := a.normalizeEarnings(rec, col)
		if err != nil {
			a.logger().Warn("alphavantage: skipping malformed earnings row", zap.Error(err))
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func horizonFor(window time.Duration) string {
	switch {
	case window > 200*24*time.Hour:
		return "12month"
	case window > 100*24*time.Hour:
		return "6month"
	default:
		return "3month"
	}
}

func (a *AlphaVantage) normalizeEarnings(rec []string, col map[string]int) (domain.EarningsEvent, error) {
	field := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	symbol := field("symbol")
	if symbol == "" {
		return domain.EarningsEvent{}, fmt.Errorf("%w: empty symbol", domain.ErrFormat)
	}
	date, err := time.Parse("2006-01-02", field("reportDate"))
	if err != nil {
		return domain.EarningsEvent{}, fmt.Errorf("%w: reportDate %q", domain.ErrFormat, field("reportDate"))
	}

	company := field("name")
	if company == "" {
		company = symbol
	}
	quarter := field("fiscalDateEnding")
	if len(quarter) >= 7 {
		quarter = quarter[:7] // YYYY-MM
	}
	estimate := field("estimate")
	if estimate == "" {
		estimate = "N/A"
	}

	return domain.EarningsEvent{
		Ticker:           symbol,
		Company:          company,
		Sector:           "Technology",
		Date:             date.UTC(),
		Quarter:          quarter,
		ConsensusEPS:     estimate,
		ConsensusRevenue: "N/A",
		Status:           domain.EarningsUpcoming,
	}, nil
}
