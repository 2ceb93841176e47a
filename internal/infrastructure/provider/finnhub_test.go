package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tmtresearch-service/internal/domain"
	"tmtresearch-service/internal/infrastructure/httpx"

	"github.com/stretchr/testify/require"
)

func testClient() *httpx.Client { return httpx.New(time.Second) }

func Test_Finnhub_Quote_DerivesChange(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/quote", r.URL.Path)
		require.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		require.Equal(t, "key", r.URL.Query().Get("token"))
		w.Write([]byte(`{"c": 210.0, "pc": 200.0, "t": 1717243200, "v": 1000}`))
	}))
	defer srv.Close()

	f := &Finnhub{BaseURL: srv.URL, APIKey: "key", Client: testClient()}
	q, err := f.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, "AAPL", q.Ticker)
	require.InDelta(t, 210.0, q.Price, 1e-9)
	require.InDelta(t, 10.0, q.Change, 1e-9)
	require.InDelta(t, 5.0, q.ChangePercent, 1e-9)
	require.Equal(t, int64(1000), q.Volume)
	require.Equal(t, "Finnhub", q.Source)
	require.Equal(t, time.UTC, q.UpdatedAt.Location())
}

func Test_Finnhub_Quote_UnknownSymbol(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"c": 0, "pc": 0}`))
	}))
	defer srv.Close()

	f := &Finnhub{BaseURL: srv.URL, APIKey: "key", Client: testClient()}
	_, err := f.Quote(context.Background(), "NOPE")
	require.ErrorIs(t, err, domain.ErrFormat)
}

func Test_Finnhub_MissingKey(t *testing.T) {
	t.Parallel()
	f := &Finnhub{BaseURL: "http://localhost", Client: testClient()}
	_, err := f.Quote(context.Background(), "AAPL")
	require.ErrorIs(t, err, domain.ErrAuth)
}

func Test_Finnhub_News_DistributesLimit(t *testing.T) {
	t.Parallel()
	perSymbol := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		perSymbol[r.URL.Query().Get("symbol")]++
		w.Write([]byte(`[
			{"headline": "story one ` + r.URL.Query().Get("symbol") + `", "datetime": 1717243200, "url": "https://example.com/` + r.URL.Query().Get("symbol") + `/1", "source": "wire", "related": "` + r.URL.Query().Get("symbol") + `"},
			{"headline": "story two ` + r.URL.Query().Get("symbol") + `", "datetime": 1717239600, "url": "https://example.com/` + r.URL.Query().Get("symbol") + `/2", "source": "wire", "related": "` + r.URL.Query().Get("symbol") + `"}
		]`))
	}))
	defer srv.Close()

	f := &Finnhub{BaseURL: srv.URL, APIKey: "key", Client: testClient()}
	items, err := f.News(context.Background(), []string{"AAPL", "MSFT", "GOOGL"}, time.Now().Add(-72*time.Hour), 5)
	require.NoError(t, err)

	// 5 across 3 tickers: 2+2+1, and every ticker gets polled once.
	require.Len(t, items, 5)
	require.Len(t, perSymbol, 3)

	// Sorted newest first.
	for i := 1; i < len(items); i++ {
		require.False(t, items[i].PublishedAt.After(items[i-1].PublishedAt))
	}
}

func Test_Finnhub_News_SkipsEmptyHeadline(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[
			{"headline": "", "datetime": 1717243200, "url": "https://example.com/1"},
			{"headline": "kept", "datetime": 1717243200, "url": "https://example.com/2", "related": "AAPL"}
		]`))
	}))
	defer srv.Close()

	f := &Finnhub{BaseURL: srv.URL, APIKey: "key", Client: testClient()}
	items, err := f.News(context.Background(), []string{"AAPL"}, time.Now().Add(-72*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "kept", items[0].Headline)
	require.Equal(t, "AAPL", items[0].Company)
}

func Test_Finnhub_Calendar(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/calendar/earnings", r.URL.Path)
		w.Write([]byte(`{"earningsCalendar": [
			{"symbol": "AAPL", "date": "2025-07-31", "epsEstimate": 1.4, "quarter": 3, "year": 2025},
			{"symbol": "MSFT", "date": "2025-07-29", "epsActual": 3.1, "epsEstimate": 2.9, "quarter": 4, "year": 2025},
			{"symbol": "", "date": "2025-07-01"}
		]}`))
	}))
	defer srv.Close()

	f := &Finnhub{BaseURL: srv.URL, APIKey: "key", Client: testClient()}
	events, err := f.Calendar(context.Background(), time.Now(), time.Now().AddDate(0, 3, 0))
	require.NoError(t, err)
	require.Len(t, events, 2)

	require.Equal(t, "AAPL", events[0].Ticker)
	require.Equal(t, "2025-Q3", events[0].Quarter)
	require.Equal(t, "1.4", events[0].ConsensusEPS)
	require.Equal(t, domain.EarningsUpcoming, events[0].Status)
	require.Nil(t, events[0].ActualEPS)

	require.Equal(t, domain.EarningsReported, events[1].Status)
	require.NotNil(t, events[1].BeatMiss)
	require.Equal(t, "Beat", *events[1].BeatMiss)
}
