package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/SoftwareFuze/ScrapBook/internal/community/domain"
	"github.com/SoftwareFuze/ScrapBook/internal/observability/metrics"
)

// setIfNewer refuses to overwrite a snapshot with an older version, so out-of-order
// post-commit writes cannot regress the cache.
var setIfNewer = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'version')
if current and tonumber(current) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func key(id string) string {
	return "community:" + id
}

func (c *RedisCache) Get(ctx context.Context, id string) (domain.Community, bool, error) {
	data, err := c.client.HGet(ctx, key(id), "data").Result()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMissesTotal.WithLabelValues("community").Inc()
		return domain.Community{}, false, nil
	}
	if err != nil {
		metrics.CacheErrorsTotal.WithLabelValues("community", "get").Inc()
		return domain.Community{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var community domain.Community
	if err := json.Unmarshal([]byte(data), &community); err != nil {
		metrics.CacheErrorsTotal.WithLabelValues("community", "decode").Inc()
		if delErr := c.Delete(ctx, id); delErr != nil {
			return domain.Community{}, false, errors.Join(fmt.Errorf("failed to unmarshal community: %w", err), delErr)
		}
		return domain.Community{}, false, fmt.Errorf("failed to unmarshal community: %w", err)
	}

	metrics.CacheHitsTotal.WithLabelValues("community").Inc()
	return community, true, nil
}

func (c *RedisCache) Set(ctx context.Context, community domain.Community) error {
	data, err := json.Marshal(community)
	if err != nil {
		return fmt.Errorf("failed to marshal community: %w", err)
	}

	err = setIfNewer.Run(
		ctx,
		c.client,
		[]string{key(community.ID)},
		strconv.FormatInt(community.Version, 10),
		string(data),
		strconv.FormatInt(c.ttl.Milliseconds(), 10),
	).Err()
	if err != nil {
		metrics.CacheErrorsTotal.WithLabelValues("community", "set").Inc()
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		metrics.CacheErrorsTotal.WithLabelValues("community", "delete").Inc()
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
