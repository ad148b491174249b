package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/trendscore/pkg/config"
)

// connectTimeout bounds the startup ping
const connectTimeout = 5 * time.Second

// ErrDisabled is returned by Ping when REDIS_ENABLED=false
var ErrDisabled = errors.New("redis disabled")

// Client owns the raw-stat cache connection and its key namespace
// ⭐ SSOT: Redis 연결과 키 네임스페이스는 여기서만 관리
type Client struct {
	rdb       *redis.Client
	enabled   bool
	namespace string
}

// New connects and pings. A disabled config yields a client whose caches
// are pass-through.
func New(cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{namespace: cfg.Redis.Namespace}, nil
	}

	c := &Client{
		rdb:       redis.NewClient(options(cfg.Redis)),
		enabled:   true,
		namespace: cfg.Redis.Namespace,
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if _, err := c.Ping(ctx); err != nil {
		_ = c.rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return c, nil
}

// options maps config onto go-redis options
func options(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// Key joins parts under the namespace: <namespace>:<part>:<part>...
func (c *Client) Key(parts ...string) string {
	return strings.Join(append([]string{c.namespace}, parts...), ":")
}

// Cache returns a cache whose keys live under <namespace>:<scope>
func (c *Client) Cache(scope string) *Cache {
	return newCache(c, c.Key(scope))
}

// Ping measures a round-trip for health output
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	if !c.enabled {
		return 0, ErrDisabled
	}
	start := time.Now()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Enabled returns whether Redis is enabled
func (c *Client) Enabled() bool {
	return c.enabled
}
