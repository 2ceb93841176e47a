package pg

import (
	"context"

	"tmtresearch-service/internal/application"
)

type CompanyRepo struct{ db *DB }

func NewCompanyRepo(db *DB) *CompanyRepo { return &CompanyRepo{db: db} }

var _ application.CompanyStore = (*CompanyRepo)(nil)

func (r *CompanyRepo) ListTickers(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT ticker FROM companies ORDER BY ticker`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
