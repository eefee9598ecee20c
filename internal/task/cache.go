// internal/task/cache.go
package task

import (
	"context"
	"encoding/json"
	"time"

	"cnpj-workers/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

const cacheKey = "tasks:snapshot"

// Cache is the read-side snapshot cache: the viewer reads the full task
// list through it to bound load on the store. It has an explicit TTL
// and an explicit invalidation call triggered by the enqueue and
// refresh actions; staleness inside the TTL is acceptable.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCache(client *redis.Client, ttl time.Duration, log logger.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "task-cache"}),
	}
}

// Get returns the cached snapshot, or ok=false on miss or any cache
// failure. Cache failures degrade to a store read, never to an error.
func (c *Cache) Get(ctx context.Context) ([]Task, bool) {
	val, err := c.client.Get(ctx, cacheKey).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache read failed", map[string]interface{}{"error": err.Error()})
		}
		return nil, false
	}

	var tasks []Task
	if err := json.Unmarshal([]byte(val), &tasks); err != nil {
		c.logger.Warn("cache payload corrupt, dropping", map[string]interface{}{"error": err.Error()})
		c.client.Del(ctx, cacheKey)
		return nil, false
	}
	return tasks, true
}

// Set stores a fresh snapshot under the configured TTL.
func (c *Cache) Set(ctx context.Context, tasks []Task) {
	data, err := json.Marshal(tasks)
	if err != nil {
		c.logger.Warn("cache marshal failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := c.client.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

// Invalidate drops the snapshot. Called on enqueue and manual refresh.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, cacheKey).Err()
}
