// Package scoringcache stores the computed leaderboard in Redis.
package scoringcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	scoringdomain "github.com/spylab/llm-ctf/app/modules/scoring/domain"
)

// Key is the Redis key holding the leaderboard.
const Key = "scores"

// RedisCache keeps the leaderboard as one JSON value with a TTL.
type RedisCache struct {
	client redis.UniversalClient
	key    string
}

// NewRedisCache creates a cache on client using Key.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client, key: Key}
}

// Get returns the cached leaderboard. ok is false on a miss.
func (c *RedisCache) Get(ctx context.Context) (scores []scoringdomain.SubmissionScore, ok bool, err error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("scoringcache.Get: %w", err)
	}
	if err := json.Unmarshal(raw, &scores); err != nil {
		return nil, false, fmt.Errorf("scoringcache.Get: decode: %w", err)
	}
	return scores, true, nil
}

func (c *RedisCache) Set(ctx context.Context, scores []scoringdomain.SubmissionScore, ttl time.Duration) error {
	raw, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("scoringcache.Set: encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("scoringcache.Set: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("scoringcache.Delete: %w", err)
	}
	return nil
}

// NewClient parses a redis:// URL and pings the server.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
