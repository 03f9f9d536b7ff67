package repository

import (
    "context"
    "fmt"
    "sync/atomic"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/sleeping-barber/internal/model"
)

// DefaultSequenceKey is the Redis key holding the last issued client id.
const DefaultSequenceKey = "barbershop:arrivals:seq"

// Sequence hands out client ids in arrival order.  Ids start at 1.
type Sequence interface {
    Next(ctx context.Context) (model.ClientID, error)
}

// RedisSequence numbers arrivals with INCR so several shop processes
// sharing a Redis instance never issue the same id.
type RedisSequence struct {
    rdb *redis.Client
    key string
}

// NewRedisSequence returns a sequence stored under key, or
// DefaultSequenceKey when key is empty.
func NewRedisSequence(rdb *redis.Client, key string) *RedisSequence {
    if key == "" {
        key = DefaultSequenceKey
    }
    return &RedisSequence{rdb: rdb, key: key}
}

// Next increments the counter and returns the new value.
func (s *RedisSequence) Next(ctx context.Context) (model.ClientID, error) {
    n, err := s.rdb.Incr(ctx, s.key).Result()
    if err != nil {
        return 0, fmt.Errorf("%w: %v", ErrSequenceUnavailable, err)
    }
    return model.ClientID(n), nil
}

// MemorySequence is the in-process sequence used when Redis is not
// configured.
type MemorySequence struct {
    last atomic.Uint64
}

// NewMemorySequence returns a sequence whose first id is 1.
func NewMemorySequence() *MemorySequence { return &MemorySequence{} }

// Next never fails.
func (s *MemorySequence) Next(context.Context) (model.ClientID, error) {
    return model.ClientID(s.last.Add(1)), nil
}
