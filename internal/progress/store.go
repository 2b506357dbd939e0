package progress

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// boardWrites are the commands queued when an attempt is folded into a
// board. Both *redis.Client and redis.Pipeliner satisfy it.
type boardWrites interface {
	ZAddGT(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// boardStore is the Redis surface the service needs.
type boardStore interface {
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) *redis.ZSliceCmd
	ZScore(ctx context.Context, key, member string) *redis.FloatCmd
	ZRevRank(ctx context.Context, key, member string) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	// Atomic queues writes and applies them as one MULTI/EXEC.
	Atomic(ctx context.Context, fn func(boardWrites)) error
}

type clientStore struct {
	*redis.Client
}

func (c clientStore) Atomic(ctx context.Context, fn func(boardWrites)) error {
	_, err := c.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		fn(pipe)
		return nil
	})
	return err
}
