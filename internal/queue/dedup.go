package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisDedup claims ids with SETNX so that only the first delivery of an
// event across all workers proceeds. Claims expire after TTL.
type RedisDedup struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

func NewRedisDedup(addr string) *RedisDedup {
	return &RedisDedup{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		Prefix: "crowdfund:event:",
		TTL:    24 * time.Hour,
	}
}

func (d *RedisDedup) FirstSeen(ctx context.Context, id string) (bool, error) {
	ok, err := d.Client.SetNX(ctx, d.Prefix+id, 1, d.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", id, err)
	}
	return ok, nil
}

func (d *RedisDedup) Forget(ctx context.Context, id string) error {
	if err := d.Client.Del(ctx, d.Prefix+id).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", id, err)
	}
	return nil
}

func (d *RedisDedup) Ping(ctx context.Context) error {
	return d.Client.Ping(ctx).Err()
}

func (d *RedisDedup) Close() error {
	return d.Client.Close()
}

// MemoryDedup is the single-process fallback when no Redis is configured.
type MemoryDedup struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDedup() *MemoryDedup {
	return &MemoryDedup{seen: map[string]struct{}{}}
}

func (d *MemoryDedup) FirstSeen(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return false, nil
	}
	d.seen[id] = struct{}{}
	return true, nil
}

func (d *MemoryDedup) Forget(ctx context.Context, id string) error {
	d.mu.Lock()
	delete(d.seen, id)
	d.mu.Unlock()
	return nil
}
