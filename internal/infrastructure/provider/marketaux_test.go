package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tmtresearch-service/internal/domain"

	"github.com/stretchr/testify/require"
)

func Test_Marketaux_News(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "key", r.URL.Query().Get("api_token"))
		require.Equal(t, "AAPL,MSFT", r.URL.Query().Get("symbols"))
		w.Write([]byte(`{"data": [
			{"title": "Apple story", "description": "desc", "url": "https://example.com/1",
			 "source": "somewire.com", "published_at": "2025-06-01T12:00:00Z",
			 "entities": [{"symbol": "AAPL"}]}
		]}`))
	}))
	defer srv.Close()

	m := &Marketaux{BaseURL: srv.URL, APIKey: "key", Client: testClient()}
	items, err := m.News(context.Background(), []string{"AAPL", "MSFT"}, time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC), 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Apple story", items[0].Headline)
	require.Equal(t, "AAPL", items[0].Company)
	require.Equal(t, "somewire.com", items[0].Source)
	require.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), items[0].PublishedAt)
}

func Test_Marketaux_News_BatchesSymbols(t *testing.T) {
	t.Parallel()
	var batches []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		batches = append(batches, r.URL.Query().Get("symbols"))
		w.Write([]byte(`{"data": []}`))
	}))
	defer srv.Close()

	tickers := []string{"T0", "T1", "T2", "T3", "T4", "T5", "T6", "T7", "T8", "T9", "T10", "T11"}
	m := &Marketaux{BaseURL: srv.URL, APIKey: "key", Client: testClient()}
	_, err := m.News(context.Background(), tickers, time.Now().Add(-72*time.Hour), 20)
	require.NoError(t, err)

	// Twelve symbols split at the vendor's cap of ten per request.
	require.Len(t, batches, 2)
	require.Len(t, strings.Split(batches[0], ","), 10)
	require.Len(t, strings.Split(batches[1], ","), 2)
}

func Test_Marketaux_News_SkipsBadTimestamp(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data": [
			{"title": "bad stamp", "url": "https://example.com/1", "published_at": "yesterday"},
			{"title": "good", "url": "https://example.com/2", "published_at": "2025-06-01T12:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	m := &Marketaux{BaseURL: srv.URL, APIKey: "key", Client: testClient()}
	items, err := m.News(context.Background(), []string{"AAPL"}, time.Now().Add(-72*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "good", items[0].Headline)
}

func Test_Marketaux_MissingKey(t *testing.T) {
	t.Parallel()
	m := &Marketaux{BaseURL: "http://localhost", Client: testClient()}
	_, err := m.News(context.Background(), nil, time.Now(), 10)
	require.ErrorIs(t, err, domain.ErrAuth)
}

