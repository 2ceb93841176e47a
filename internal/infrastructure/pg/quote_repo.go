package pg

import (
	"context"
	"errors"
	"time"

	"tmtresearch-service/internal/application"
	"tmtresearch-service/internal/domain"

	"github.com/jackc/pgx/v5"
)

type QuoteRepo struct{ db *DB }

func NewQuoteRepo(db *DB) *QuoteRepo { return &QuoteRepo{db: db} }

var _ application.QuoteStore = (*QuoteRepo)(nil)

const quoteCols = `ticker, price::float8, change::float8, change_percent::float8, volume, previous_close::float8, source, updated_at`

func scanQuote(row pgx.Row) (domain.Quote, error) {
	var q domain.Quote
	err := row.Scan(&q.Ticker, &q.Price, &q.Change, &q.ChangePercent, &q.Volume, &q.PreviousClose, &q.Source, &q.UpdatedAt)
	return q, err
}

func (r *QuoteRepo) Get(ctx context.Context, ticker string) (domain.Quote, error) {
	const q = `SELECT ` + quoteCols + ` FROM stock_prices WHERE ticker=$1`
	out, err := scanQuote(r.db.Pool.QueryRow(ctx, q, ticker))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Quote{}, application.ErrNotFound
		}
		return domain.Quote{}, err
	}
	return out, nil
}

const upsertQuoteSQL = `
        INSERT INTO stock_prices(ticker, price, change, change_percent, volume, previous_close, source, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (ticker) DO UPDATE
          SET price=EXCLUDED.price,
              change=EXCLUDED.change,
              change_percent=EXCLUDED.change_percent,
              volume=EXCLUDED.volume,
              previous_close=EXCLUDED.previous_close,
              source=EXCLUDED.source,
              updated_at=EXCLUDED.updated_at`

func (r *QuoteRepo) Upsert(ctx context.Context, q domain.Quote) error {
	_, err := r.db.Pool.Exec(ctx, upsertQuoteSQL,
		q.Ticker, q.Price, q.Change, q.ChangePercent, q.Volume, q.PreviousClose, q.Source, q.UpdatedAt)
	return err
}

func (r *QuoteRepo) UpsertBatch(ctx context.Context, quotes []domain.Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	for _, q := range quotes {
		if _, err := tx.Exec(ctx, upsertQuoteSQL,
			q.Ticker, q.Price, q.Change, q.ChangePercent, q.Volume, q.PreviousClose, q.Source, q.UpdatedAt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *QuoteRepo) ListFresh(ctx context.Context, cutoff time.Time) ([]domain.Quote, error) {
	const q = `SELECT ` + quoteCols + ` FROM stock_prices WHERE updated_at > $1 ORDER BY ticker`
	rows, err := r.db.Pool.Query(ctx, q, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Quote
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, quote)
	}
	return out, rows.Err()
}
