package local

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dhawalhost/gatewarden/internal/policy"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a CounterStore backed by Redis, for deployments where window
// counters must be shared across service replicas. Fixed windows use a
// per-window INCR key with TTL; sliding windows use a sorted set of event
// timestamps pruned on every increment.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// NewRedisStore creates a Redis-backed counter store.
func NewRedisStore(rdb *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{rdb: rdb, prefix: "gatewarden:window"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Incr implements CounterStore.
func (s *RedisStore) Incr(ctx context.Context, key string, w policy.Window, now time.Time) (Count, error) {
	switch w.Kind {
	case policy.WindowFixed:
		return s.incrFixed(ctx, key, w, now)
	case policy.WindowSliding:
		return s.incrSliding(ctx, key, w, now)
	default:
		return Count{}, fmt.Errorf("unknown window kind %q", w.Kind)
	}
}

func (s *RedisStore) incrFixed(ctx context.Context, key string, w policy.Window, now time.Time) (Count, error) {
	start := now.Truncate(w.Period)
	k := fmt.Sprintf("%s:fixed:%s:%d", s.prefix, key, start.Unix())

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, w.Period+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return Count{}, err
	}

	return Count{Used: int(incr.Val()), Reset: start.Add(w.Period)}, nil
}

func (s *RedisStore) incrSliding(ctx context.Context, key string, w policy.Window, now time.Time) (Count, error) {
	k := fmt.Sprintf("%s:sliding:%s", s.prefix, key)
	cutoff := strconv.FormatInt(now.Add(-w.Period).UnixNano(), 10)

	pipe := s.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "0", cutoff)
	pipe.ZAdd(ctx, k, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	card := pipe.ZCard(ctx, k)
	oldest := pipe.ZRangeWithScores(ctx, k, 0, 0)
	pipe.Expire(ctx, k, w.Period+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return Count{}, err
	}

	reset := now.Add(w.Period)
	if entries := oldest.Val(); len(entries) > 0 {
		reset = time.Unix(0, int64(entries[0].Score)).Add(w.Period)
	}

	return Count{Used: int(card.Val()), Reset: reset}, nil
}
