package source

import (
	"context"
	"time"

	"github.com/wonny/trendscore/internal/contracts"
	"github.com/wonny/trendscore/pkg/redis"
)

// rawCache is satisfied by *redis.Cache
type rawCache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() (interface{}, error)) error
}

// Cached is a read-through cache in front of another source. Closed dates
// (before today) are cached for a day; today is cached briefly because its
// totals are still moving; future dates bypass the cache.
type Cached struct {
	next  contracts.RawStatSource
	cache rawCache
	today func() time.Time
}

// NewCached wraps next with a cache. today returns the current stat date.
func NewCached(next contracts.RawStatSource, cache rawCache, today func() time.Time) *Cached {
	return &Cached{
		next:  next,
		cache: cache,
		today: today,
	}
}

// ttl returns how long date's raw stats may be cached; zero means never
func (c *Cached) ttl(date time.Time) time.Duration {
	today := c.today()
	switch {
	case date.Before(today):
		return redis.TTLDaily
	case date.Equal(today):
		return redis.TTLShort
	default:
		return 0
	}
}

// FetchRawStats serves dates from cache when possible
func (c *Cached) FetchRawStats(ctx context.Context, category contracts.Category, date time.Time) ([]contracts.RawStat, error) {
	ttl := c.ttl(date)
	if ttl == 0 {
		return c.next.FetchRawStats(ctx, category, date)
	}

	var raws []contracts.RawStat
	key := redis.RawStatsKey(category.String(), contracts.DateString(date))
	err := c.cache.GetOrSet(ctx, key, &raws, ttl, func() (interface{}, error) {
		return c.next.FetchRawStats(ctx, category, date)
	})
	if err != nil {
		return nil, err
	}
	return raws, nil
}
