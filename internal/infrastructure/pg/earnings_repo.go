package pg

import (
	"context"

	"tmtresearch-service/internal/application"
	"tmtresearch-service/internal/domain"
)

type EarningsRepo struct{ db *DB }

func NewEarningsRepo(db *DB) *EarningsRepo { return &EarningsRepo{db: db} }

var _ application.EarningsStore = (*EarningsRepo)(nil)

func (r *EarningsRepo) Insert(ctx context.Context, ev domain.EarningsEvent) error {
	const q = `
        INSERT INTO earnings_events(ticker, company, sector, event_date, quarter,
            consensus_eps, actual_eps, consensus_revenue, actual_revenue, status, beat_miss)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (ticker, event_date) DO UPDATE
          SET company=EXCLUDED.company,
              quarter=EXCLUDED.quarter,
              consensus_eps=EXCLUDED.consensus_eps,
              actual_eps=EXCLUDED.actual_eps,
              consensus_revenue=EXCLUDED.consensus_revenue,
              actual_revenue=EXCLUDED.actual_revenue,
              status=EXCLUDED.status,
              beat_miss=EXCLUDED.beat_miss`
	_, err := r.db.Pool.Exec(ctx, q,
		ev.Ticker, ev.Company, ev.Sector, ev.Date, ev.Quarter,
		ev.ConsensusEPS, ev.ActualEPS, ev.ConsensusRevenue, ev.ActualRevenue,
		string(ev.Status), ev.BeatMiss)
	return err
}

func (r *EarningsRepo) List(ctx context.Context, status domain.EarningsStatus, limit int) ([]domain.EarningsEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	const base = `
        SELECT ticker, company, sector, event_date, quarter,
               consensus_eps, actual_eps, consensus_revenue, actual_revenue, status, beat_miss
        FROM earnings_events`
	var (
		q    string
		args []any
	)
	if status == "" {
		q = base + ` ORDER BY event_date LIMIT $1`
		args = []any{limit}
	} else {
		q = base + ` WHERE status=$1 ORDER BY event_date LIMIT $2`
		args = []any{string(status), limit}
	}

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EarningsEvent
	for rows.Next() {
		var ev domain.EarningsEvent
		var st string
		if err := rows.Scan(&ev.Ticker, &ev.Company, &ev.Sector, &ev.Date, &ev.Quarter,
			&ev.ConsensusEPS, &ev.ActualEPS, &ev.ConsensusRevenue, &ev.ActualRevenue,
			&st, &ev.BeatMiss); err != nil {
			return nil, err
		}
		ev.Status = domain.EarningsStatus(st)
		out = append(out, ev)
	}
	return out, rows.Err()
}
