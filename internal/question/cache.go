package question

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 5 * time.Minute

// PoolCache stores filtered question pools.
type PoolCache interface {
	Get(ctx context.Context, certificationID string, domains []string) ([]Question, error)
	Set(ctx context.Context, certificationID string, domains []string, pool []Question) error
}

type kvStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Cache provides Redis-backed pool caching to offload the question bank.
type Cache struct {
	client kvStore
	ttl    time.Duration
}

var _ PoolCache = (*Cache)(nil)

func NewCache(client kvStore, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(certificationID string, domains []string) string {
	sorted := append([]string(nil), domains...)
	sort.Strings(sorted)
	return strings.Join([]string{
		"questionpool",
		certificationID,
		strings.Join(sorted, "|"),
	}, ":")
}

// Get returns nil, nil on a miss.
func (c *Cache) Get(ctx context.Context, certificationID string, domains []string) ([]Question, error) {
	data, err := c.client.Get(ctx, cacheKey(certificationID, domains)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var pool []Question
	if err := json.Unmarshal(data, &pool); err != nil {
		return nil, err
	}
	return pool, nil
}

func (c *Cache) Set(ctx context.Context, certificationID string, domains []string, pool []Question) error {
	data, err := json.Marshal(pool)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(certificationID, domains), data, c.ttl).Err()
}
