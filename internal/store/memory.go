package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/trendscore/internal/contracts"
)

// Memory is an in-process StatStore and RawStatSource over the same rows
type Memory struct {
	mu   sync.RWMutex
	rows map[contracts.Category]map[int64]map[time.Time]contracts.DailyEntityStat
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		rows: make(map[contracts.Category]map[int64]map[time.Time]contracts.DailyEntityStat),
	}
}

// SeedRaw writes raw counters for a date without derived fields
func (m *Memory) SeedRaw(category contracts.Category, date time.Time, raws ...contracts.RawStat) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range raws {
		var points float64
		if r.TotalPoints != nil {
			points = *r.TotalPoints
		}
		m.put(contracts.DailyEntityStat{
			EntityID:    r.EntityID,
			Category:    category,
			StatDate:    date,
			OrderCount:  r.OrderCount,
			TotalPoints: points,
		})
	}
}

// FetchRawStats returns the raw counters stored for a date
func (m *Memory) FetchRawStats(ctx context.Context, category contracts.Category, date time.Time) ([]contracts.RawStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []contracts.RawStat
	for id, byDate := range m.rows[category] {
		if row, ok := byDate[date]; ok {
			points := row.TotalPoints
			out = append(out, contracts.RawStat{EntityID: id, OrderCount: row.OrderCount, TotalPoints: &points})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out, nil
}

// GetRow retrieves a single row
func (m *Memory) GetRow(ctx context.Context, entityID int64, category contracts.Category, date time.Time) (*contracts.DailyEntityStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.rows[category][entityID][date]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	c := clone(row)
	return &c, nil
}

// GetHistory retrieves rows in [beforeDate-windowDays, beforeDate), most recent first
func (m *Memory) GetHistory(ctx context.Context, entityID int64, category contracts.Category, beforeDate time.Time, windowDays int) ([]contracts.DailyEntityStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	since := beforeDate.AddDate(0, 0, -windowDays)
	var out []contracts.DailyEntityStat
	for d, row := range m.rows[category][entityID] {
		if d.Before(beforeDate) && !d.Before(since) {
			out = append(out, clone(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StatDate.After(out[j].StatDate) })
	return out, nil
}

// LatestScoredBefore retrieves the most recent scored row before beforeDate
func (m *Memory) LatestScoredBefore(ctx context.Context, entityID int64, category contracts.Category, beforeDate time.Time) (*contracts.DailyEntityStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *contracts.DailyEntityStat
	for d, row := range m.rows[category][entityID] {
		if !d.Before(beforeDate) || row.Derived == nil {
			continue
		}
		if latest == nil || d.After(latest.StatDate) {
			c := clone(row)
			latest = &c
		}
	}
	if latest == nil {
		return nil, contracts.ErrNotFound
	}
	return latest, nil
}

// UpsertRow inserts or replaces a row
func (m *Memory) UpsertRow(ctx context.Context, row *contracts.DailyEntityStat) error {
	if _, err := tableFor(row.Category); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.put(clone(*row))
	return nil
}

// LatestScoredDate returns the most recent scored date within [from, to]
func (m *Memory) LatestScoredDate(ctx context.Context, category contracts.Category, from, to time.Time) (*time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *time.Time
	for _, byDate := range m.rows[category] {
		for d, row := range byDate {
			if row.Derived == nil || d.Before(from) || d.After(to) {
				continue
			}
			if latest == nil || d.After(*latest) {
				dd := d
				latest = &dd
			}
		}
	}
	return latest, nil
}

// Rows returns every row of a category on a date, ordered by entity id
func (m *Memory) Rows(category contracts.Category, date time.Time) []contracts.DailyEntityStat {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []contracts.DailyEntityStat
	for _, byDate := range m.rows[category] {
		if row, ok := byDate[date]; ok {
			out = append(out, clone(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

func (m *Memory) put(row contracts.DailyEntityStat) {
	byEntity, ok := m.rows[row.Category]
	if !ok {
		byEntity = make(map[int64]map[time.Time]contracts.DailyEntityStat)
		m.rows[row.Category] = byEntity
	}
	byDate, ok := byEntity[row.EntityID]
	if !ok {
		byDate = make(map[time.Time]contracts.DailyEntityStat)
		byEntity[row.EntityID] = byDate
	}
	byDate[row.StatDate] = row
}

// clone deep-copies pointer fields so callers never share state
func clone(row contracts.DailyEntityStat) contracts.DailyEntityStat {
	if row.Rank != nil {
		row.Rank = contracts.IntPtr(*row.Rank)
	}
	if row.Derived != nil {
		d := *row.Derived
		if d.PreviousRank != nil {
			d.PreviousRank = contracts.IntPtr(*d.PreviousRank)
		}
		row.Derived = &d
	}
	return row
}
