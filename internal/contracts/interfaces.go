package contracts

import (
	"context"
	"time"
)

// RawStatSource supplies one day's raw counters for a category
// ⭐ SSOT: 원천 데이터 인터페이스 (외부 분석 피드, 블랙박스)
type RawStatSource interface {
	// FetchRawStats fails with *SourceUnavailableError on transient failure
	FetchRawStats(ctx context.Context, category Category, date time.Time) ([]RawStat, error)
}

// StatStore is durable keyed storage for DailyEntityStat rows
// ⭐ SSOT: 통계 저장소 인터페이스
type StatStore interface {
	// GetRow returns ErrNotFound when the row is absent
	GetRow(ctx context.Context, entityID int64, category Category, date time.Time) (*DailyEntityStat, error)

	// GetHistory returns rows with statDate strictly before beforeDate and
	// within windowDays calendar days of it, most recent first
	GetHistory(ctx context.Context, entityID int64, category Category, beforeDate time.Time, windowDays int) ([]DailyEntityStat, error)

	// LatestScoredBefore returns the most recent scored row strictly before
	// beforeDate regardless of distance, or ErrNotFound
	LatestScoredBefore(ctx context.Context, entityID int64, category Category, beforeDate time.Time) (*DailyEntityStat, error)

	// UpsertRow writes the row atomically
	UpsertRow(ctx context.Context, row *DailyEntityStat) error

	// LatestScoredDate returns the most recent scored date within [from, to], or nil
	LatestScoredDate(ctx context.Context, category Category, from, to time.Time) (*time.Time, error)
}

// SchemaStore applies additive schema changes and answers metadata lookups
// ⭐ SSOT: 스키마 변경 인터페이스
type SchemaStore interface {
	ApplySchemaChange(ctx context.Context, statement string) (ApplyResult, error)
	ProbeColumn(ctx context.Context, table, column string) (bool, error)
	ProbeRelation(ctx context.Context, name string) (bool, error)
}
