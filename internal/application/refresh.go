package application

import (
	"context"
	"sync"
	"time"

	"tmtresearch-service/internal/domain"

	"go.uber.org/zap"
)

// BatchRefresher fetches quotes for a ticker universe in fixed-size chunks
// and writes each chunk to the store as soon as it completes, so an
// interrupted run keeps everything already committed.
//
// Requests are serialized through a Pacer rather than per-chunk sleeps; the
// limiter is shared, so concurrent refresh triggers (should the lock ever be
// bypassed) still respect the vendor quota.
type BatchRefresher struct {
	// Providers is a fallback order: the first provider that returns a
	// quote wins. An auth failure removes a provider for the rest of the
	// process run.
	Providers []QuoteProvider
	Store     QuoteStore
	Pacer     Pacer
	ChunkWait time.Duration
	Log       *zap.Logger

	mu       sync.Mutex
	disabled map[string]bool
}

// chunks partitions tickers into ceil(len/size) slices preserving input
// order. The slices alias the input array.
func chunks(tickers []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	out := make([][]string, 0, (len(tickers)+size-1)/size)
	for start := 0; start < len(tickers); start += size {
		end := start + size
		if end > len(tickers) {
			end = len(tickers)
		}
		out = append(out, tickers[start:end])
	}
	return out
}

func (r *BatchRefresher) providerDisabled(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disabled[name]
}

func (r *BatchRefresher) disableProvider(name string) {
	r.mu.Lock()
	if r.disabled == nil {
		r.disabled = make(map[string]bool)
	}
	r.disabled[name] = true
	r.mu.Unlock()
}

// Run refreshes every ticker once. A provider error for one ticker is logged
// and that ticker is simply absent from the written set; a store error
// aborts only the affected chunk. Cancellation stops between requests.
func (r *BatchRefresher) Run(ctx context.Context, tickers []string, chunkSize int) error {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}
	pacer := r.Pacer
	if pacer == nil {
		pacer = NoopPacer{}
	}

	parts := chunks(tickers, chunkSize)
	log.Info("refresh started",
		zap.Int("tickers", len(tickers)),
		zap.Int("chunks", len(parts)),
		zap.Int("chunk_size", chunkSize))

	for i, chunk := range parts {
		quotes := make([]domain.Quote, 0, len(chunk))
		for _, ticker := range chunk {
			if err := pacer.Wait(ctx); err != nil {
				return err
			}
			q, err := r.fetchOne(ctx, ticker)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn("quote fetch failed, skipping ticker",
					zap.String("ticker", ticker), zap.Error(err))
				continue
			}
			quotes = append(quotes, q)
		}

		if len(quotes) > 0 {
			if err := r.Store.UpsertBatch(ctx, quotes); err != nil {
				// Prior chunks are already committed; only this one is lost.
				log.Error("chunk write failed",
					zap.Int("chunk", i+1), zap.Error(err))
			} else {
				log.Info("chunk stored",
					zap.Int("chunk", i+1),
					zap.Int("of", len(parts)),
					zap.Int("quotes", len(quotes)))
			}
		}

		if i < len(parts)-1 && r.ChunkWait > 0 {
			t := time.NewTimer(r.ChunkWait)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}

	log.Info("refresh finished")
	return nil
}

func (r *BatchRefresher) fetchOne(ctx context.Context, ticker string) (domain.Quote, error) {
	var lastErr error = ErrNoProviders
	for _, p := range r.Providers {
		if r.providerDisabled(p.Name()) {
			continue
		}
		q, err := p.Quote(ctx, ticker)
		if err == nil {
			return q, nil
		}
		lastErr = err
		if isAuthErr(err) {
			if r.Log != nil {
				r.Log.Warn("quote provider auth failed, disabling for this run",
					zap.String("provider", p.Name()), zap.Error(err))
			}
			r.disableProvider(p.Name())
		}
		if ctx.Err() != nil {
			return domain.Quote{}, ctx.Err()
		}
	}
	return domain.Quote{}, lastErr
}
