package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the minimal key-value surface the guard needs: atomic
// set-if-absent with expiry, and delete.
type Store interface {
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}

// Key builds the lease key for a job-level step.
func Key(jobID, step string) string {
	return fmt.Sprintf("idemp:%s:%s", jobID, step)
}

// VariantKey builds the lease key for a per-variant step.
func VariantKey(jobID, step string, variantIndex int) string {
	return fmt.Sprintf("idemp:%s:%s:v%d", jobID, step, variantIndex)
}

// Guard hands out TTL-bounded leases per (job, step, variant). Within the
// TTL at most one caller observes a successful acquire unless the lease is
// explicitly released; on crash the lease self-expires.
type Guard struct {
	store Store
	ttl   time.Duration
}

// NewGuard constructs a guard with the configured lease TTL.
func NewGuard(store Store, ttl time.Duration) *Guard {
	return &Guard{store: store, ttl: ttl}
}

// TryAcquire returns true only when this call created the lease.
func (g *Guard) TryAcquire(ctx context.Context, key string) (bool, error) {
	return g.store.SetNX(ctx, key, g.ttl)
}

// Release drops the lease. Releasing an absent lease is a no-op.
func (g *Guard) Release(ctx context.Context, key string) error {
	return g.store.Del(ctx, key)
}

// RedisStore backs the guard with Redis SET NX EX semantics, shared across
// API instances.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps a connected Redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, "1", ttl).Result()
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

var _ Store = (*RedisStore)(nil)
