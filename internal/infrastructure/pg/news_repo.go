package pg

import (
	"context"

	"tmtresearch-service/internal/application"
	"tmtresearch-service/internal/domain"
)

type NewsRepo struct{ db *DB }

func NewNewsRepo(db *DB) *NewsRepo { return &NewsRepo{db: db} }

var _ application.NewsStore = (*NewsRepo)(nil)

// Insert relies on the partial unique index on url: duplicates are dropped
// by ON CONFLICT and reported through the affected-row count.
func (r *NewsRepo) Insert(ctx context.Context, item domain.NewsItem) (bool, error) {
	const q = `
        INSERT INTO news_items(published_at, sector, company, headline, summary, source, url, provenance)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (url) WHERE url <> '' DO NOTHING`
	tag, err := r.db.Pool.Exec(ctx, q,
		item.PublishedAt, item.Sector, item.Company, item.Headline,
		item.Summary, item.Source, item.URL, string(item.Provenance))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *NewsRepo) List(ctx context.Context, tickers []string, limit int) ([]domain.NewsItem, error) {
	if limit <= 0 {
		limit = 50
	}

	const base = `
        SELECT published_at, sector, company, headline, summary, source, url, provenance
        FROM news_items`
	var (
		q    string
		args []any
	)
	if len(tickers) == 0 {
		q = base + ` ORDER BY published_at DESC LIMIT $1`
		args = []any{limit}
	} else {
		patterns := make([]string, len(tickers))
		for i, t := range tickers {
			patterns[i] = "%" + t + "%"
		}
		q = base + ` WHERE company ILIKE ANY($1) ORDER BY published_at DESC LIMIT $2`
		args = []any{patterns, limit}
	}

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.NewsItem
	for rows.Next() {
		var it domain.NewsItem
		var prov string
		if err := rows.Scan(&it.PublishedAt, &it.Sector, &it.Company, &it.Headline,
			&it.Summary, &it.Source, &it.URL, &prov); err != nil {
			return nil, err
		}
		it.Provenance = domain.Provenance(prov)
		out = append(out, it)
	}
	return out, rows.Err()
}
