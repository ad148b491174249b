package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/trendscore/internal/contracts"
	"github.com/wonny/trendscore/pkg/config"
	"github.com/wonny/trendscore/pkg/httputil"
	"github.com/wonny/trendscore/pkg/logger"
	"github.com/wonny/trendscore/pkg/redis"
)

var testDate = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

func newHTTPClient() *httputil.Client {
	cfg := &config.Config{Feed: config.FeedConfig{Timeout: 2 * time.Second}}
	return httputil.New(cfg, logger.Nop()).WithRetry(1, time.Millisecond)
}

func TestFeed_FetchRawStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/raw-stats", r.URL.Path)
		assert.Equal(t, "cannabis_strain", r.URL.Query().Get("category"))
		assert.Equal(t, "2024-03-05", r.URL.Query().Get("date"))
		assert.Equal(t, "key-123", r.Header.Get("X-Api-Key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"entity_id":1,"order_count":4,"total_points":12.5},{"entity_id":2,"order_count":1,"total_points":null}]`))
	}))
	defer server.Close()

	feed := NewFeed(newHTTPClient(), server.URL+"/", "key-123", logger.Nop())

	raws, err := feed.FetchRawStats(context.Background(), contracts.CategoryCannabisStrain, testDate)
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.Equal(t, 12.5, *raws[0].TotalPoints)
	assert.Nil(t, raws[1].TotalPoints, "missing points stay missing")
}

func TestFeed_ServerErrorIsUnavailable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	feed := NewFeed(newHTTPClient(), server.URL, "", logger.Nop())

	_, err := feed.FetchRawStats(context.Background(), contracts.CategoryBrand, testDate)
	var sue *contracts.SourceUnavailableError
	require.ErrorAs(t, err, &sue)
	assert.True(t, contracts.IsRetryable(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFeed_NotFoundIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	raws, err := NewFeed(newHTTPClient(), server.URL, "", logger.Nop()).
		FetchRawStats(context.Background(), contracts.CategoryBrand, testDate)
	require.NoError(t, err)
	assert.Empty(t, raws)
}

func TestFeed_BadRequestIsNotRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad category", http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := NewFeed(newHTTPClient(), server.URL, "", logger.Nop()).
		FetchRawStats(context.Background(), contracts.CategoryBrand, testDate)
	require.Error(t, err)
	assert.False(t, contracts.IsRetryable(err))
	assert.Contains(t, err.Error(), "bad category")
}

// flakySource fails with SourceUnavailableError until failures runs out
type flakySource struct {
	failures int32
	calls    int32
	err      error
}

func (f *flakySource) FetchRawStats(ctx context.Context, category contracts.Category, date time.Time) ([]contracts.RawStat, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	if atomic.AddInt32(&f.failures, -1) >= 0 {
		return nil, &contracts.SourceUnavailableError{Category: category, Date: date, Err: errors.New("timeout")}
	}
	points := 10.0
	return []contracts.RawStat{{EntityID: 1, OrderCount: 1, TotalPoints: &points}}, nil
}

func TestRetrying(t *testing.T) {
	tests := []struct {
		name      string
		source    *flakySource
		retries   int
		wantErr   bool
		wantCalls int32
	}{
		{"succeeds after retries", &flakySource{failures: 2}, 3, false, 3},
		{"exhausts retries", &flakySource{failures: 10}, 2, true, 3},
		{"no retry on invalid input", &flakySource{err: &contracts.InvalidInputError{Field: "category", Reason: "bad"}}, 3, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetrying(tt.source, tt.retries, time.Millisecond, logger.Nop())
			raws, err := r.FetchRawStats(context.Background(), contracts.CategoryProduct, testDate)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Len(t, raws, 1)
			}
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&tt.source.calls))
		})
	}
}

func TestRetrying_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRetrying(&flakySource{failures: 10}, 5, time.Hour, logger.Nop())
	_, err := r.FetchRawStats(ctx, contracts.CategoryProduct, testDate)
	assert.ErrorIs(t, err, context.Canceled)
}

// mapCache is an in-process stand-in for the Redis cache
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func (m *mapCache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() (interface{}, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if data, ok := m.data[key]; ok {
		return json.Unmarshal(data, dest)
	}
	value, err := fn()
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = data
	if m.ttls != nil {
		m.ttls[key] = ttl
	}
	return json.Unmarshal(data, dest)
}

func TestCached(t *testing.T) {
	inner := &flakySource{}
	cache := &mapCache{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
	today := testDate.AddDate(0, 0, 1)

	c := NewCached(inner, cache, func() time.Time { return today })
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		raws, err := c.FetchRawStats(ctx, contracts.CategoryBrand, testDate)
		require.NoError(t, err)
		require.Len(t, raws, 1)
		assert.Equal(t, 10.0, *raws[0].TotalPoints)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls), "closed date served from cache")
	assert.Equal(t, redis.TTLDaily, cache.ttls["raw:brand:2024-03-05"])

	// Today is still open: cached only briefly
	for i := 0; i < 2; i++ {
		_, err := c.FetchRawStats(ctx, contracts.CategoryBrand, today)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))
	assert.Equal(t, redis.TTLShort, cache.ttls["raw:brand:2024-03-06"])

	// Future dates bypass the cache
	for i := 0; i < 2; i++ {
		_, err := c.FetchRawStats(ctx, contracts.CategoryBrand, today.AddDate(0, 0, 1))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(&inner.calls))
	assert.NotContains(t, cache.data, "raw:brand:2024-03-07")
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	inner := &flakySource{failures: 1}
	cache := &mapCache{data: make(map[string][]byte)}
	c := NewCached(inner, cache, func() time.Time { return testDate.AddDate(0, 0, 7) })

	_, err := c.FetchRawStats(context.Background(), contracts.CategoryBrand, testDate)
	assert.True(t, contracts.IsRetryable(err))

	raws, err := c.FetchRawStats(context.Background(), contracts.CategoryBrand, testDate)
	require.NoError(t, err)
	assert.Len(t, raws, 1)
}
