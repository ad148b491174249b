package ranking

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/trendscore/internal/contracts"
	"github.com/wonny/trendscore/pkg/logger"
)

// Assigner computes same-day rank within a category
// ⭐ SSOT: 랭킹 로직은 여기서만
type Assigner struct {
	logger *logger.Logger
}

// Assignment is the result of ranking one (category, date) group
type Assignment struct {
	Category    contracts.Category
	Date        time.Time
	Ranks       map[int64]int
	RankedTotal float64 // sum of totalPoints over ranked entities
	Excluded    int     // entities with zero orders
}

// NewAssigner creates a new rank assigner
func NewAssigner(log *logger.Logger) *Assigner {
	return &Assigner{
		logger: log.WithField("module", "ranking"),
	}
}

// RankOf returns the entity's rank, or nil when it is off the leaderboard
func (a *Assignment) RankOf(entityID int64) *int {
	r, ok := a.Ranks[entityID]
	if !ok {
		return nil
	}
	return &r
}

// Size returns N, the number of ranked entities
func (a *Assignment) Size() int {
	return len(a.Ranks)
}

// Assign ranks every entity with orderCount > 0 by totalPoints descending,
// ties broken by ascending entity id. Ranks are dense 1..N.
func (a *Assigner) Assign(category contracts.Category, date time.Time, raws []contracts.RawStat) (*Assignment, error) {
	seen := make(map[int64]bool, len(raws))
	for _, r := range raws {
		if err := validate(r); err != nil {
			return nil, err
		}
		if seen[r.EntityID] {
			return nil, &contracts.InvalidInputError{EntityID: r.EntityID, Field: "entity_id", Reason: "duplicate entity in group"}
		}
		seen[r.EntityID] = true
	}

	type candidate struct {
		id     int64
		points float64
	}

	active := make([]candidate, 0, len(raws))
	for _, r := range raws {
		if r.OrderCount > 0 {
			active = append(active, candidate{id: r.EntityID, points: *r.TotalPoints})
		}
	}

	// Sort by points (descending), then entity id (ascending)
	sort.Slice(active, func(i, j int) bool {
		if active[i].points != active[j].points {
			return active[i].points > active[j].points
		}
		return active[i].id < active[j].id
	})

	result := &Assignment{
		Category: category,
		Date:     date,
		Ranks:    make(map[int64]int, len(active)),
		Excluded: len(raws) - len(active),
	}

	// Assign ranks
	for i, c := range active {
		result.Ranks[c.id] = i + 1
		result.RankedTotal += c.points
	}

	a.logger.WithFields(map[string]interface{}{
		"category":     category,
		"date":         contracts.DateString(date),
		"ranked":       len(active),
		"excluded":     result.Excluded,
		"ranked_total": result.RankedTotal,
	}).Debug("Ranking completed")

	return result, nil
}

// Partition splits raw rows into valid rows and per-entity rejections so a
// batch can continue without the malformed entities
func Partition(raws []contracts.RawStat) ([]contracts.RawStat, []error) {
	counts := make(map[int64]int, len(raws))
	for _, r := range raws {
		counts[r.EntityID]++
	}

	valid := make([]contracts.RawStat, 0, len(raws))
	var rejected []error
	reported := make(map[int64]bool)

	for _, r := range raws {
		if counts[r.EntityID] > 1 {
			if !reported[r.EntityID] {
				reported[r.EntityID] = true
				rejected = append(rejected, &contracts.InvalidInputError{
					EntityID: r.EntityID,
					Field:    "entity_id",
					Reason:   fmt.Sprintf("appears %d times in group", counts[r.EntityID]),
				})
			}
			continue
		}
		if err := validate(r); err != nil {
			rejected = append(rejected, err)
			continue
		}
		valid = append(valid, r)
	}

	return valid, rejected
}

func validate(r contracts.RawStat) error {
	if r.TotalPoints == nil {
		return &contracts.InvalidInputError{EntityID: r.EntityID, Field: "total_points", Reason: "missing"}
	}
	if math.IsNaN(*r.TotalPoints) || math.IsInf(*r.TotalPoints, 0) {
		return &contracts.InvalidInputError{EntityID: r.EntityID, Field: "total_points", Reason: "not a finite number"}
	}
	if *r.TotalPoints < 0 {
		return &contracts.InvalidInputError{EntityID: r.EntityID, Field: "total_points", Reason: fmt.Sprintf("negative value %v", *r.TotalPoints)}
	}
	if r.OrderCount < 0 {
		return &contracts.InvalidInputError{EntityID: r.EntityID, Field: "order_count", Reason: fmt.Sprintf("negative value %d", r.OrderCount)}
	}
	return nil
}
