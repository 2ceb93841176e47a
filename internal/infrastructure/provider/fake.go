package provider

import (
	"context"
	"time"

	"tmtresearch-service/internal/application"
	"tmtresearch-service/internal/domain"
)

// Ensure Fake implements application.QuoteProvider.
var _ application.QuoteProvider = (*Fake)(nil)

// Fake returns a synthetic quote for any ticker; useful for dev runs without
// vendor credentials.
type Fake struct {
	price float64
	pct   float64
}

func NewFake(price, changePercent float64) *Fake {
	return &Fake{price: price, pct: changePercent}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Quote(_ context.Context, ticker string) (domain.Quote, error) {
	prev := f.price / (1 + f.pct/100)
	return domain.Quote{
		Ticker:        ticker,
		Price:         f.price,
		Change:        f.price - prev,
		ChangePercent: f.pct,
		PreviousClose: prev,
		Source:        "fake",
		UpdatedAt:     time.Now().UTC(),
	}, nil
}
