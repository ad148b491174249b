package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/trendscore/internal/contracts"
)

// Postgres reads the raw counters the collector pipeline writes into the
// category tables
// ⭐ SSOT: DB 원천 데이터 조회는 여기서만
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a new raw stat reader
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// FetchRawStats returns every entity row for the date. Connection failures
// surface as *contracts.SourceUnavailableError.
func (p *Postgres) FetchRawStats(ctx context.Context, category contracts.Category, date time.Time) ([]contracts.RawStat, error) {
	table := category.Table()
	if table == "" {
		return nil, &contracts.InvalidInputError{Field: "category", Reason: fmt.Sprintf("unknown category %q", category)}
	}

	query := fmt.Sprintf(`
		SELECT entity_id, order_count, total_points
		FROM %s
		WHERE stat_date = $1
		ORDER BY entity_id
	`, table)

	rows, err := p.pool.Query(ctx, query, date)
	if err != nil {
		return nil, &contracts.SourceUnavailableError{Category: category, Date: date, Err: err}
	}
	defer rows.Close()

	var raws []contracts.RawStat
	for rows.Next() {
		var r contracts.RawStat
		if err := rows.Scan(&r.EntityID, &r.OrderCount, &r.TotalPoints); err != nil {
			return nil, fmt.Errorf("failed to scan raw stat: %w", err)
		}
		raws = append(raws, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &contracts.SourceUnavailableError{Category: category, Date: date, Err: err}
	}

	return raws, nil
}
