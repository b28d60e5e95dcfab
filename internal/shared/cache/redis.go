package cache

import (
	"context"
	"time"

	"github.com/payflow/server/internal/shared/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates a new Redis client.
func NewRedisClient(cfg *config.RedisConfig) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// Close closes the Redis client.
func Close(client redis.UniversalClient) error {
	return client.Close()
}

// Lock is a coarse distributed lock backed by Redis SET NX. It keeps a
// reconciliation sweep from running on more than one instance at a time.
type Lock struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewLock creates a lock with the given TTL.
func NewLock(client redis.UniversalClient, ttl time.Duration) *Lock {
	return &Lock{client: client, ttl: ttl}
}

// Acquire tries to take the named lock. It returns false when another
// holder already owns it.
func (l *Lock) Acquire(ctx context.Context, name string) (bool, error) {
	return l.client.SetNX(ctx, "lock:"+name, time.Now().UnixNano(), l.ttl).Result()
}

// Release drops the named lock.
func (l *Lock) Release(ctx context.Context, name string) error {
	return l.client.Del(ctx, "lock:"+name).Err()
}
