package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"tmtresearch-service/internal/application"
	"tmtresearch-service/internal/domain"
	"tmtresearch-service/internal/infrastructure/httpx"

	"go.uber.org/zap"
)

// FMP (Financial Modeling Prep) supplies the earnings calendar.
type FMP struct {
	BaseURL string
	APIKey  string
	Client  *httpx.Client
	Log     *zap.Logger
}

var _ application.EarningsProvider = (*FMP)(nil)

func (f *FMP) Name() string { return "fmp" }

func (f *FMP) logger() *zap.Logger {
	if f.Log == nil {
		return zap.NewNop()
	}
	return f.Log
}

type fmpEarningsItem struct {
	Symbol           string   `json:"symbol"`
	Date             string   `json:"date"`
	EPS              *float64 `json:"eps"`
	EPSEstimated     *float64 `json:"epsEstimated"`
	Revenue          *float64 `json:"revenue"`
	RevenueEstimated *float64 `json:"revenueEstimated"`
	FiscalDateEnding string   `json:"fiscalDateEnding"`
}

func (f *FMP) Calendar(ctx context.Context, from, to time.Time) ([]domain.EarningsEvent, error) {
	if f.APIKey == "" {
		return nil, fmt.Errorf("%w: fmp: missing api key", domain.ErrAuth)
	}
	u, err := url.Parse(f.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("fmp: invalid base url: %w", err)
	}
	u.Path += "/earning_calendar"
	q := u.Query()
	q.Set("from", from.Format("2006-01-02"))
	q.Set("to", to.Format("2006-01-02"))
	q.Set("apikey", f.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("fmp: create request: %w", err)
	}

	var items []fmpEarningsItem
	if err := f.Client.DoJSON(ctx, req, &items); err != nil {
		return nil, err
	}

	out := make([]domain.EarningsEvent, 0, len(items))
	for _, it := range items {
		ev, err := f.normalize(it)
		if err != nil {
			f.logger().Warn("fmp: skipping malformed earnings entry", zap.Error(err))
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (f *FMP) normalize(it fmpEarningsItem) (domain.EarningsEvent, error) {
	if it.Symbol == "" {
		return domain.EarningsEvent{}, fmt.Errorf("%w: empty symbol", domain.ErrFormat)
	}
	date, err := time.Parse("2006-01-02", it.Date)
	if err != nil {
		return domain.EarningsEvent{}, fmt.Errorf("%w: date %q", domain.ErrFormat, it.Date)
	}

	quarter := it.FiscalDateEnding
	if len(quarter) >= 7 {
		quarter = quarter[:7] // YYYY-MM
	}
	if quarter == "" {
		quarter = "Q?"
	}

	ev := domain.EarningsEvent{
		Ticker:           it.Symbol,
		Company:          it.Symbol,
		Sector:           "Technology",
		Date:             date.UTC(),
		Quarter:          quarter,
		ConsensusEPS:     floatOrNA(it.EPSEstimated),
		ConsensusRevenue: floatOrNA(it.RevenueEstimated),
		Status:           domain.EarningsUpcoming,
	}
	if it.EPS != nil {
		actual := fmt.Sprintf("%g", *it.EPS)
		ev.ActualEPS = &actual
		ev.Status = domain.EarningsReported
		ev.BeatMiss = beatMiss(*it.EPS, it.EPSEstimated)
	}
	if it.Revenue != nil {
		rev := fmt.Sprintf("%g", *it.Revenue)
		ev.ActualRevenue = &rev
	}
	return ev, nil
}
