// Package redis implements engine.PathCache on top of Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/rmax-ai/pathlord/pkg/engine"
	"github.com/rmax-ai/pathlord/pkg/graph"
)

const (
	keyPrefix = "pathlord:path:"
	pathsSet  = "pathlord:paths"
)

// DefaultTTL bounds how long entries of an abandoned revision linger.
const DefaultTTL = 10 * time.Minute

// PathCache stores computed paths as JSON strings. Every key is also added to
// an index set so Purge can drop them without scanning the keyspace.
type PathCache struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

var _ engine.PathCache = (*PathCache)(nil)

// NewPathCache wraps client. ttl <= 0 uses DefaultTTL. A nil logger is allowed.
func NewPathCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *PathCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &PathCache{client: client, ttl: ttl, logger: logger}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-path-cache",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit_breaker_state_change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return c
}

func (c *PathCache) makeKey(key engine.CacheKey) string {
	return keyPrefix + key.String()
}

// Get returns the cached path for key. A miss is (Path{}, false, nil).
func (c *PathCache) Get(ctx context.Context, key engine.CacheKey) (graph.Path, bool, error) {
	k := c.makeKey(key)
	v, err := c.breaker.Execute(func() (any, error) {
		data, err := c.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to GET key %s: %w", k, err)
		}
		return data, nil
	})
	if err != nil {
		return graph.Path{}, false, err
	}
	data, ok := v.(string)
	if !ok {
		return graph.Path{}, false, nil
	}

	var path graph.Path
	if err := json.Unmarshal([]byte(data), &path); err != nil {
		return graph.Path{}, false, fmt.Errorf("failed to unmarshal path from key %s: %w", k, err)
	}
	return path, true, nil
}

// Put stores path under key with the configured TTL.
func (c *PathCache) Put(ctx context.Context, key engine.CacheKey, path graph.Path) error {
	k := c.makeKey(key)
	data, err := json.Marshal(path)
	if err != nil {
		return fmt.Errorf("failed to marshal path: %w", err)
	}
	_, err = c.breaker.Execute(func() (any, error) {
		pipe := c.client.TxPipeline()
		pipe.Set(ctx, k, data, c.ttl)
		pipe.SAdd(ctx, pathsSet, k)
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to SET key %s: %w", k, err)
		}
		return nil, nil
	})
	return err
}

// Purge deletes every cached path.
func (c *PathCache) Purge(ctx context.Context) error {
	_, err := c.breaker.Execute(func() (any, error) {
		keys, err := c.client.SMembers(ctx, pathsSet).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to SMEMBERS %s: %w", pathsSet, err)
		}
		keys = append(keys, pathsSet)
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return nil, fmt.Errorf("failed to DEL cached paths: %w", err)
		}
		c.logger.Debug("path_cache_purged", zap.Int("keys", len(keys)-1))
		return nil, nil
	})
	return err
}

// Ping checks connectivity.
func (c *PathCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *PathCache) Close() error {
	return c.client.Close()
}
