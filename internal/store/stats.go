package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wonny/trendscore/internal/contracts"
)

// CategoryStats is a read-only health summary of one category table
type CategoryStats struct {
	Category       contracts.Category
	Rows           int64
	ScoredRows     int64
	FirstDate      *time.Time
	LastDate       *time.Time
	LastScoredDate *time.Time
	RankViolations int64 // dates whose ranks are not a dense 1..N
}

// Coverage returns the scored share of rows (0~1)
func (s *CategoryStats) Coverage() float64 {
	if s.Rows == 0 {
		return 0
	}
	return float64(s.ScoredRows) / float64(s.Rows)
}

// Stats collects data-check counters for a category
func (p *Postgres) Stats(ctx context.Context, category contracts.Category) (*CategoryStats, error) {
	table, err := tableFor(category)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COUNT(scored_at),
			MIN(stat_date),
			MAX(stat_date),
			MAX(stat_date) FILTER (WHERE scored_at IS NOT NULL)
		FROM %s
	`, table)

	stats := &CategoryStats{Category: category}
	var first, last, lastScored sql.NullTime

	err = p.db.QueryRowContext(ctx, query).Scan(&stats.Rows, &stats.ScoredRows, &first, &last, &lastScored)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to count %s: %w", table, err))
	}
	stats.FirstDate = nullDate(first)
	stats.LastDate = nullDate(last)
	stats.LastScoredDate = nullDate(lastScored)

	violations := fmt.Sprintf(`
		SELECT COUNT(*) FROM (
			SELECT stat_date
			FROM %s
			WHERE rank IS NOT NULL
			GROUP BY stat_date
			HAVING MIN(rank) <> 1 OR MAX(rank) <> COUNT(*) OR COUNT(DISTINCT rank) <> COUNT(*)
		) v
	`, table)

	if err := p.db.QueryRowContext(ctx, violations).Scan(&stats.RankViolations); err != nil {
		return nil, classify(fmt.Errorf("failed to check rank density for %s: %w", table, err))
	}

	return stats, nil
}

func nullDate(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	d := contracts.NormalizeDate(t.Time, time.UTC)
	return &d
}
