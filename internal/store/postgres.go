package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wonny/trendscore/internal/contracts"
	"github.com/wonny/trendscore/pkg/logger"
)

// Postgres is the Persistent Stat Store backed by one table per category
// ⭐ SSOT: 통계 row 저장/조회는 여기서만
type Postgres struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewPostgres creates a store over a database/sql handle
func NewPostgres(db *sql.DB, log *logger.Logger) *Postgres {
	return &Postgres{
		db:     db,
		logger: log.WithField("module", "store"),
	}
}

const selectColumns = `entity_id, stat_date, order_count, total_points,
			rank, previous_rank, trend_multiplier, consistency_score,
			velocity_score, streak_days, market_share_percent, scored_at`

// GetRow retrieves a single row
func (p *Postgres) GetRow(ctx context.Context, entityID int64, category contracts.Category, date time.Time) (*contracts.DailyEntityStat, error) {
	table, err := tableFor(category)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE entity_id = $1 AND stat_date = $2
	`, selectColumns, table)

	row, err := scanStat(p.db.QueryRowContext(ctx, query, entityID, date), category)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("failed to get row: %w", err))
	}

	return row, nil
}

// GetHistory retrieves rows in [beforeDate-windowDays, beforeDate), most recent first
func (p *Postgres) GetHistory(ctx context.Context, entityID int64, category contracts.Category, beforeDate time.Time, windowDays int) ([]contracts.DailyEntityStat, error) {
	table, err := tableFor(category)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE entity_id = $1 AND stat_date < $2 AND stat_date >= $3
		ORDER BY stat_date DESC
	`, selectColumns, table)

	since := beforeDate.AddDate(0, 0, -windowDays)
	rows, err := p.db.QueryContext(ctx, query, entityID, beforeDate, since)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to query history: %w", err))
	}
	defer rows.Close()

	var history []contracts.DailyEntityStat
	for rows.Next() {
		row, err := scanStat(rows, category)
		if err != nil {
			return nil, classify(fmt.Errorf("failed to scan history: %w", err))
		}
		history = append(history, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("failed to iterate history: %w", err))
	}

	return history, nil
}

// LatestScoredBefore retrieves the most recent scored row before beforeDate
func (p *Postgres) LatestScoredBefore(ctx context.Context, entityID int64, category contracts.Category, beforeDate time.Time) (*contracts.DailyEntityStat, error) {
	table, err := tableFor(category)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE entity_id = $1 AND stat_date < $2 AND scored_at IS NOT NULL
		ORDER BY stat_date DESC
		LIMIT 1
	`, selectColumns, table)

	row, err := scanStat(p.db.QueryRowContext(ctx, query, entityID, beforeDate), category)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("failed to get latest scored row: %w", err))
	}

	return row, nil
}

// UpsertRow inserts or updates a row atomically
func (p *Postgres) UpsertRow(ctx context.Context, row *contracts.DailyEntityStat) error {
	table, err := tableFor(row.Category)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			entity_id, stat_date, order_count, total_points,
			rank, previous_rank, trend_multiplier, consistency_score,
			velocity_score, streak_days, market_share_percent, scored_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, CASE WHEN $12 THEN NOW() END)
		ON CONFLICT (entity_id, stat_date) DO UPDATE SET
			order_count = EXCLUDED.order_count,
			total_points = EXCLUDED.total_points,
			rank = EXCLUDED.rank,
			previous_rank = EXCLUDED.previous_rank,
			trend_multiplier = EXCLUDED.trend_multiplier,
			consistency_score = EXCLUDED.consistency_score,
			velocity_score = EXCLUDED.velocity_score,
			streak_days = EXCLUDED.streak_days,
			market_share_percent = EXCLUDED.market_share_percent,
			scored_at = EXCLUDED.scored_at
	`, table)

	var (
		previousRank            sql.NullInt64
		multiplier, consistency sql.NullFloat64
		velocity, share         sql.NullFloat64
		streak                  sql.NullInt64
	)
	if d := row.Derived; d != nil {
		previousRank = nullInt(d.PreviousRank)
		multiplier = sql.NullFloat64{Float64: d.TrendMultiplier, Valid: true}
		consistency = sql.NullFloat64{Float64: d.ConsistencyScore, Valid: true}
		velocity = sql.NullFloat64{Float64: d.VelocityScore, Valid: true}
		streak = sql.NullInt64{Int64: int64(d.StreakDays), Valid: true}
		share = sql.NullFloat64{Float64: d.MarketSharePercent, Valid: true}
	}

	_, err = p.db.ExecContext(ctx, query,
		row.EntityID, row.StatDate, row.OrderCount, row.TotalPoints,
		nullInt(row.Rank), previousRank, multiplier, consistency,
		velocity, streak, share, row.Derived != nil,
	)
	if err != nil {
		return classify(fmt.Errorf("failed to upsert row: %w", err))
	}

	return nil
}

// LatestScoredDate returns the most recent scored date within [from, to]
func (p *Postgres) LatestScoredDate(ctx context.Context, category contracts.Category, from, to time.Time) (*time.Time, error) {
	table, err := tableFor(category)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT MAX(stat_date)
		FROM %s
		WHERE scored_at IS NOT NULL AND stat_date BETWEEN $1 AND $2
	`, table)

	var latest sql.NullTime
	if err := p.db.QueryRowContext(ctx, query, from, to).Scan(&latest); err != nil {
		return nil, classify(fmt.Errorf("failed to get latest scored date: %w", err))
	}
	if !latest.Valid {
		return nil, nil
	}

	d := contracts.NormalizeDate(latest.Time, time.UTC)
	return &d, nil
}

// ApplySchemaChange executes one additive statement. Duplicate object
// errors are reported as AlreadyApplied by SQLSTATE, not message text.
func (p *Postgres) ApplySchemaChange(ctx context.Context, statement string) (contracts.ApplyResult, error) {
	if _, err := p.db.ExecContext(ctx, statement); err != nil {
		if isAlreadyExists(err) {
			return contracts.ResultAlreadyApplied, nil
		}
		return "", classify(err)
	}
	return contracts.ResultApplied, nil
}

// ProbeColumn checks information_schema for a column
func (p *Postgres) ProbeColumn(ctx context.Context, table, column string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2
		)
	`

	var exists bool
	if err := p.db.QueryRowContext(ctx, query, table, column).Scan(&exists); err != nil {
		return false, classify(fmt.Errorf("failed to look up column %s.%s: %w", table, column, err))
	}
	return exists, nil
}

// ProbeRelation checks whether a table or index exists
func (p *Postgres) ProbeRelation(ctx context.Context, name string) (bool, error) {
	var exists bool
	if err := p.db.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", name).Scan(&exists); err != nil {
		return false, classify(fmt.Errorf("failed to look up relation %s: %w", name, err))
	}
	return exists, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanStat(s scanner, category contracts.Category) (*contracts.DailyEntityStat, error) {
	var (
		row                     contracts.DailyEntityStat
		rank, previousRank      sql.NullInt64
		multiplier, consistency sql.NullFloat64
		velocity, share         sql.NullFloat64
		streak                  sql.NullInt64
		scoredAt                sql.NullTime
	)

	err := s.Scan(
		&row.EntityID, &row.StatDate, &row.OrderCount, &row.TotalPoints,
		&rank, &previousRank, &multiplier, &consistency,
		&velocity, &streak, &share, &scoredAt,
	)
	if err != nil {
		return nil, err
	}

	row.Category = category
	row.StatDate = contracts.NormalizeDate(row.StatDate, time.UTC)
	row.Rank = intPtr(rank)

	if scoredAt.Valid {
		row.Derived = &contracts.TrendFields{
			PreviousRank:       intPtr(previousRank),
			TrendMultiplier:    multiplier.Float64,
			ConsistencyScore:   consistency.Float64,
			VelocityScore:      velocity.Float64,
			StreakDays:         int(streak.Int64),
			MarketSharePercent: share.Float64,
		}
	}

	return &row, nil
}

func tableFor(c contracts.Category) (string, error) {
	table := c.Table()
	if table == "" {
		return "", &contracts.InvalidInputError{Field: "category", Reason: fmt.Sprintf("unknown category %q", c)}
	}
	return table, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

// PostgreSQL SQLSTATE codes for objects that already exist
const (
	codeDuplicateColumn = "42701"
	codeDuplicateTable  = "42P07"
	codeDuplicateObject = "42710"

	codeUndefinedColumn = "42703"
	codeUndefinedTable  = "42P01"
)

func isAlreadyExists(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case codeDuplicateColumn, codeDuplicateTable, codeDuplicateObject:
		return true
	default:
		return false
	}
}

// classify marks connectivity failures with contracts.ErrStoreUnavailable
// and missing tables or columns with contracts.ErrSchemaMissing
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case isConnectivity(err):
		return fmt.Errorf("%w: %v", contracts.ErrStoreUnavailable, err)
	case isUndefined(err):
		return fmt.Errorf("%w: %v", contracts.ErrSchemaMissing, err)
	default:
		return err
	}
}

func isUndefined(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeUndefinedColumn || pgErr.Code == codeUndefinedTable
}

func isConnectivity(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 connection exception, 57P01..57P03 shutdown
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P")
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
