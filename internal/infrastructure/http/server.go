package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tmtresearch-service/internal/application"
	"tmtresearch-service/internal/domain"

	"github.com/go-chi/chi/v5"
)

// Defaults carries the per-deployment knobs handlers fall back to when a
// request does not override them.
type Defaults struct {
	Tickers   []string
	ChunkSize int
	Threshold float64
	MaxAge    time.Duration
	NewsLimit int
}

type Server struct {
	svc  *application.Service
	def  Defaults
	ping func(context.Context) error
}

func NewServer(svc *application.Service, def Defaults) *Server {
	return &Server{svc: svc, def: def}
}

// SetReadyCheck installs the probe used by /readyz.
func (s *Server) SetReadyCheck(fn func(context.Context) error) { s.ping = fn }

type quoteResponse struct {
	Ticker        string    `json:"ticker"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        int64     `json:"volume"`
	PreviousClose float64   `json:"previous_close"`
	Source        string    `json:"source"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toQuoteResponse(q domain.Quote) quoteResponse {
	return quoteResponse{
		Ticker:        q.Ticker,
		Price:         q.Price,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		Volume:        q.Volume,
		PreviousClose: q.PreviousClose,
		Source:        q.Source,
		UpdatedAt:     q.UpdatedAt,
	}
}

func (s *Server) GetQuote(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(chi.URLParam(r, "ticker"))
	q, err := s.svc.GetQuote(r.Context(), ticker)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidTicker):
			writeError(w, http.StatusBadRequest, "invalid ticker")
		case errors.Is(err, application.ErrNotFound):
			writeError(w, http.StatusNotFound, "ticker not cached")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, toQuoteResponse(q))
}

type volatileResponse struct {
	Gainers       []quoteResponse `json:"gainers"`
	Losers        []quoteResponse `json:"losers"`
	TotalChecked  int             `json:"total_checked"`
	VolatileCount int             `json:"volatile_count"`
	CacheAge      string          `json:"cache_age"`
	LatestUpdate  *time.Time      `json:"latest_update,omitempty"`
	NeedsRefresh  bool            `json:"needs_refresh"`
}

func (s *Server) GetVolatile(w http.ResponseWriter, r *http.Request) {
	threshold := s.def.Threshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			writeError(w, http.StatusBadRequest, "invalid threshold")
			return
		}
		threshold = f
	}
	maxAge := s.def.MaxAge
	if v := r.URL.Query().Get("max_age_minutes"); v != "" {
		mins, err := strconv.Atoi(v)
		if err != nil || mins <= 0 {
			writeError(w, http.StatusBadRequest, "invalid max_age_minutes")
			return
		}
		maxAge = time.Duration(mins) * time.Minute
	}

	report, err := s.svc.GetVolatile(r.Context(), threshold, maxAge)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := volatileResponse{
		Gainers:       make([]quoteResponse, 0, len(report.Gainers)),
		Losers:        make([]quoteResponse, 0, len(report.Losers)),
		TotalChecked:  report.TotalChecked,
		VolatileCount: report.VolatileCount,
		CacheAge:      report.CacheAge,
		LatestUpdate:  report.LatestUpdate,
		NeedsRefresh:  report.NeedsRefresh,
	}
	for _, q := range report.Gainers {
		resp.Gainers = append(resp.Gainers, toQuoteResponse(q))
	}
	for _, q := range report.Losers {
		resp.Losers = append(resp.Losers, toQuoteResponse(q))
	}
	writeJSON(w, http.StatusOK, resp)
}

type refreshRequest struct {
	Tickers   []string `json:"tickers"`
	ChunkSize int      `json:"chunk_size"`
}

func (s *Server) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	tickers := body.Tickers
	if len(tickers) == 0 {
		tickers = s.def.Tickers
	}
	for i, t := range tickers {
		tickers[i] = strings.ToUpper(strings.TrimSpace(t))
		if !domain.ValidateTicker(tickers[i]) {
			writeError(w, http.StatusBadRequest, "invalid ticker: "+t)
			return
		}
	}
	chunkSize := body.ChunkSize
	if chunkSize <= 0 {
		chunkSize = s.def.ChunkSize
	}

	if err := s.svc.RefreshAsync(tickers, chunkSize); err != nil {
		switch {
		case errors.Is(err, application.ErrRefreshInProgress):
			writeError(w, http.StatusConflict, "refresh already in progress")
		case errors.Is(err, application.ErrBadRequest):
			writeError(w, http.StatusBadRequest, "no tickers to refresh")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "started",
		"tickers": len(tickers),
	})
}

type newsResponse struct {
	PublishedAt time.Time `json:"published_at"`
	Sector      string    `json:"sector"`
	Company     string    `json:"company"`
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	Provenance  string    `json:"provenance"`
}

func (s *Server) GetNews(w http.ResponseWriter, r *http.Request) {
	tickers := queryTickers(r)
	limit := s.def.NewsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	items, err := s.svc.GetNews(r.Context(), tickers, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]newsResponse, 0, len(items))
	for _, it := range items {
		out = append(out, newsResponse{
			PublishedAt: it.PublishedAt,
			Sector:      it.Sector,
			Company:     it.Company,
			Headline:    it.Headline,
			Summary:     it.Summary,
			Source:      it.Source,
			URL:         it.URL,
			Provenance:  string(it.Provenance),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "count": len(out)})
}

func (s *Server) SyncNews(w http.ResponseWriter, r *http.Request) {
	tickers := queryTickers(r)
	inserted, err := s.svc.SyncNews(r.Context(), tickers, s.def.NewsLimit)
	if err != nil {
		if errors.Is(err, application.ErrNoProviders) {
			writeError(w, http.StatusServiceUnavailable, "no news providers configured")
			return
		}
		writeError(w, http.StatusBadGateway, "news sync failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"inserted": inserted})
}

type earningsResponse struct {
	Ticker           string  `json:"ticker"`
	Company          string  `json:"company"`
	Sector           string  `json:"sector"`
	Date             string  `json:"date"`
	Quarter          string  `json:"quarter"`
	ConsensusEPS     string  `json:"consensus_eps"`
	ActualEPS        *string `json:"actual_eps,omitempty"`
	ConsensusRevenue string  `json:"consensus_revenue"`
	ActualRevenue    *string `json:"actual_revenue,omitempty"`
	Status           string  `json:"status"`
	BeatMiss         *string `json:"beat_miss,omitempty"`
}

func (s *Server) GetEarnings(w http.ResponseWriter, r *http.Request) {
	var status domain.EarningsStatus
	switch v := r.URL.Query().Get("status"); v {
	case "":
	case string(domain.EarningsUpcoming), string(domain.EarningsReported):
		status = domain.EarningsStatus(v)
	default:
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	events, err := s.svc.GetEarnings(r.Context(), status, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]earningsResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, earningsResponse{
			Ticker:           ev.Ticker,
			Company:          ev.Company,
			Sector:           ev.Sector,
			Date:             ev.Date.Format("2006-01-02"),
			Quarter:          ev.Quarter,
			ConsensusEPS:     ev.ConsensusEPS,
			ActualEPS:        ev.ActualEPS,
			ConsensusRevenue: ev.ConsensusRevenue,
			ActualRevenue:    ev.ActualRevenue,
			Status:           string(ev.Status),
			BeatMiss:         ev.BeatMiss,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out, "count": len(out)})
}

func (s *Server) SyncEarnings(w http.ResponseWriter, r *http.Request) {
	horizon := r.URL.Query().Get("horizon")
	switch horizon {
	case "", "3month", "6month", "12month":
	default:
		writeError(w, http.StatusBadRequest, "invalid horizon")
		return
	}

	inserted, err := s.svc.SyncEarnings(r.Context(), horizon)
	if err != nil {
		if errors.Is(err, application.ErrNoProviders) {
			writeError(w, http.StatusServiceUnavailable, "no earnings providers configured")
			return
		}
		writeError(w, http.StatusBadGateway, "earnings sync failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"inserted": inserted})
}

func queryTickers(r *http.Request) []string {
	raw := r.URL.Query().Get("tickers")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.ToUpper(strings.TrimSpace(p)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Code: status, Message: msg})
}
