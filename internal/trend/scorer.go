package trend

import (
	"math"
	"time"

	"github.com/wonny/trendscore/internal/contracts"
	"github.com/wonny/trendscore/pkg/config"
	"github.com/wonny/trendscore/pkg/logger"
)

// Scorer derives trend fields from today's ranked row and prior rows
// ⭐ SSOT: 트렌드 점수 계산은 여기서만
type Scorer struct {
	cfg    config.TrendConfig
	logger *logger.Logger
}

// Today is an entity's raw input and rank for the day being scored
type Today struct {
	EntityID    int64
	Date        time.Time
	OrderCount  int64
	TotalPoints *float64
	Rank        *int
	RankedTotal float64 // sum of points over ranked entities that day
}

// DefaultConfig returns the default trend constants
func DefaultConfig() config.TrendConfig {
	return config.TrendConfig{
		CapSteps:      10,
		StepWeight:    0.05,
		MinMultiplier: 0.5,
		MaxMultiplier: 2.0,
		WindowDays:    7,
		Epsilon:       1e-9,
	}
}

// NewScorer creates a new trend scorer
func NewScorer(cfg config.TrendConfig, log *logger.Logger) *Scorer {
	if cfg.WindowDays < 1 {
		cfg.WindowDays = 1
	}
	return &Scorer{
		cfg:    cfg,
		logger: log.WithField("module", "trend"),
	}
}

// WindowDays returns the trailing window length including today
func (s *Scorer) WindowDays() int {
	return s.cfg.WindowDays
}

// Score computes derived fields. history holds prior rows in the same
// category, most recent first. Unscored rows count only toward the window
// statistics. Rows dated today or later are ignored.
func (s *Scorer) Score(today Today, history []contracts.DailyEntityStat) (*contracts.TrendFields, error) {
	if today.TotalPoints == nil {
		return nil, &contracts.InsufficientHistoryError{EntityID: today.EntityID, Date: today.Date, Reason: "total_points missing"}
	}
	points := *today.TotalPoints
	if math.IsNaN(points) || math.IsInf(points, 0) || points < 0 {
		return nil, &contracts.InsufficientHistoryError{EntityID: today.EntityID, Date: today.Date, Reason: "total_points invalid"}
	}
	if today.OrderCount < 0 {
		return nil, &contracts.InsufficientHistoryError{EntityID: today.EntityID, Date: today.Date, Reason: "order_count invalid"}
	}

	prior := priorRows(today.Date, history)
	prevRow := latestScored(prior)

	fields := &contracts.TrendFields{
		PreviousRank: previousRank(prevRow),
	}

	fields.TrendMultiplier = s.trendMultiplier(fields.PreviousRank, today.Rank)
	fields.StreakDays = streak(today, fields.PreviousRank, prevRow)
	fields.MarketSharePercent = marketShare(points, today.Rank, today.RankedTotal)

	xs, ys := s.window(today.Date, points, prior)
	fields.VelocityScore = velocity(xs, ys)
	fields.ConsistencyScore = s.consistency(ys)

	s.logger.WithEntity(today.EntityID).WithDate(today.Date).WithFields(map[string]interface{}{
		"trend_multiplier": fields.TrendMultiplier,
		"streak_days":      fields.StreakDays,
		"window_points":    len(ys),
	}).Debug("Scored entity")

	return fields, nil
}

// priorRows drops anything not strictly before date
func priorRows(date time.Time, history []contracts.DailyEntityStat) []contracts.DailyEntityStat {
	out := make([]contracts.DailyEntityStat, 0, len(history))
	for _, h := range history {
		if h.StatDate.Before(date) {
			out = append(out, h)
		}
	}
	return out
}

func latestScored(prior []contracts.DailyEntityStat) *contracts.DailyEntityStat {
	var latest *contracts.DailyEntityStat
	for i := range prior {
		if !prior[i].Scored() {
			continue
		}
		if latest == nil || prior[i].StatDate.After(latest.StatDate) {
			latest = &prior[i]
		}
	}
	return latest
}

// previousRank is the latest scored row's rank, or the rank it carried
// forward when it was itself unranked
func previousRank(prevRow *contracts.DailyEntityStat) *int {
	if prevRow == nil {
		return nil
	}
	if prevRow.Rank != nil {
		return contracts.IntPtr(*prevRow.Rank)
	}
	if prevRow.Derived.PreviousRank != nil {
		return contracts.IntPtr(*prevRow.Derived.PreviousRank)
	}
	return nil
}

func (s *Scorer) trendMultiplier(prev, rank *int) float64 {
	if prev == nil || rank == nil {
		return 1.0
	}

	delta := *prev - *rank
	steps := delta
	if steps < 0 {
		steps = -steps
	}
	if steps > s.cfg.CapSteps {
		steps = s.cfg.CapSteps
	}

	sign := 0.0
	switch {
	case delta > 0:
		sign = 1
	case delta < 0:
		sign = -1
	}

	return Clamp(1.0+sign*float64(steps)*s.cfg.StepWeight, s.cfg.MinMultiplier, s.cfg.MaxMultiplier)
}

// streak counts consecutive days with rank held or improved. A missing row
// on the previous calendar day ends the run.
func streak(today Today, prev *int, prevRow *contracts.DailyEntityStat) int {
	if today.Rank == nil {
		return 0
	}
	if prev != nil && *today.Rank > *prev {
		return 0
	}
	if prevRow != nil && contracts.DaysBetween(prevRow.StatDate, today.Date) == 1 {
		return prevRow.Derived.StreakDays + 1
	}
	return 1
}

func marketShare(points float64, rank *int, rankedTotal float64) float64 {
	if rank == nil || rankedTotal <= 0 {
		return 0
	}
	return zero(points / rankedTotal * 100)
}

// window returns (day offset, points) pairs for the trailing calendar
// window [date-(W-1), date], oldest first
func (s *Scorer) window(date time.Time, points float64, prior []contracts.DailyEntityStat) ([]float64, []float64) {
	start := date.AddDate(0, 0, -(s.cfg.WindowDays - 1))

	byOffset := make(map[int]float64)
	for _, h := range prior {
		if h.StatDate.Before(start) {
			continue
		}
		off := contracts.DaysBetween(start, h.StatDate)
		if _, dup := byOffset[off]; !dup {
			byOffset[off] = h.TotalPoints
		}
	}

	xs := make([]float64, 0, len(byOffset)+1)
	ys := make([]float64, 0, len(byOffset)+1)
	for off := 0; off < s.cfg.WindowDays-1; off++ {
		if v, ok := byOffset[off]; ok {
			xs = append(xs, float64(off))
			ys = append(ys, v)
		}
	}
	xs = append(xs, float64(s.cfg.WindowDays-1))
	ys = append(ys, points)

	return xs, ys
}

func velocity(xs, ys []float64) float64 {
	if len(ys) < 2 {
		return 0
	}
	mean := Mean(ys)
	if mean == 0 {
		return 0
	}
	return zero(Slope(xs, ys) / mean)
}

func (s *Scorer) consistency(ys []float64) float64 {
	if len(ys) < 2 {
		return 100
	}
	std := StdDev(ys)
	if std == 0 {
		return 100
	}
	cv := std / (Mean(ys) + s.cfg.Epsilon)
	return zero(Clamp(100*(1-math.Min(1, cv)), 0, 100))
}
