package contracts

import (
	"math"
	"time"
)

// DailyEntityStat is one row per (entity, category, date)
// ⭐ SSOT: 일별 엔티티 통계 row
type DailyEntityStat struct {
	EntityID    int64     `json:"entity_id"`
	Category    Category  `json:"category"`
	StatDate    time.Time `json:"stat_date"`
	OrderCount  int64     `json:"order_count"`
	TotalPoints float64   `json:"total_points"`

	// Rank is nil when the entity had no orders that day
	Rank *int `json:"rank,omitempty"`

	// Derived is nil until the row has been scored
	Derived *TrendFields `json:"derived,omitempty"`
}

// TrendFields holds the derived trend values of a scored row
type TrendFields struct {
	PreviousRank       *int    `json:"previous_rank,omitempty"`
	TrendMultiplier    float64 `json:"trend_multiplier"`
	ConsistencyScore   float64 `json:"consistency_score"`
	VelocityScore      float64 `json:"velocity_score"`
	StreakDays         int     `json:"streak_days"`
	MarketSharePercent float64 `json:"market_share_percent"`
}

// Scored reports whether derived fields have been computed
func (s *DailyEntityStat) Scored() bool {
	return s != nil && s.Derived != nil
}

// Ranked reports whether the entity was on the leaderboard that day
func (s *DailyEntityStat) Ranked() bool {
	return s != nil && s.Rank != nil
}

// Equal compares two derived field sets exactly
func (t *TrendFields) Equal(o *TrendFields) bool {
	if t == nil || o == nil {
		return t == o
	}
	return equalIntPtr(t.PreviousRank, o.PreviousRank) &&
		sameFloat(t.TrendMultiplier, o.TrendMultiplier) &&
		sameFloat(t.ConsistencyScore, o.ConsistencyScore) &&
		sameFloat(t.VelocityScore, o.VelocityScore) &&
		t.StreakDays == o.StreakDays &&
		sameFloat(t.MarketSharePercent, o.MarketSharePercent)
}

// RawStat is one entity's raw counters for a day as supplied by the source.
// TotalPoints is a pointer so a missing value can be told apart from zero.
type RawStat struct {
	EntityID    int64    `json:"entity_id"`
	OrderCount  int64    `json:"order_count"`
	TotalPoints *float64 `json:"total_points"`
}

// NormalizeDate truncates t to the calendar day in loc, returned as midnight UTC
func NormalizeDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateString formats a normalized stat date
func DateString(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseDate parses YYYY-MM-DD into a normalized stat date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, &InvalidInputError{Field: "date", Reason: err.Error()}
	}
	return t.UTC(), nil
}

// DaysBetween returns the whole number of days from a to b
func DaysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// sameFloat is bitwise equality, treating NaN as equal to itself
func sameFloat(a, b float64) bool {
	return math.Float64bits(a) == math.Float64bits(b)
}
