package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"recipe-planner/internal/infrastructure/config"
	"recipe-planner/internal/metrics"
	"recipe-planner/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// redisKeyPrefix 所有鍵的命名空間
const redisKeyPrefix = "recipe-planner:"

// RedisStore Redis 快取
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisStore 連線到 Redis 並測試連線
func NewRedisStore(cfg config.CacheConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	common.LogInfo("Redis 快取已連線", zap.String("addr", cfg.RedisAddr))
	return NewRedisStoreWithClient(client, cfg.TTL), nil
}

// NewRedisStoreWithClient 使用既有的 client
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Get 獲取緩存
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.misses.Add(1)
			metrics.CacheMisses.WithLabelValues("redis").Inc()
			common.LogCacheMiss("redis", key)
			return nil, common.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}
	s.hits.Add(1)
	metrics.CacheHits.WithLabelValues("redis").Inc()
	common.LogCacheHit("redis", key)
	return data, nil
}

// Set 設置緩存，ttl 為 0 時使用設定的 TTL
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// DeletePrefix 以 SCAN 找出符合前綴的鍵並刪除
func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+prefix+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return int(n), nil
}

// Stats 快取統計
func (s *RedisStore) Stats(ctx context.Context) map[string]interface{} {
	stats := map[string]interface{}{
		"backend": config.CacheBackendRedis,
		"hits":    s.hits.Load(),
		"misses":  s.misses.Load(),
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		stats["error"] = err.Error()
	}
	return stats
}

// Close 關閉連線
func (s *RedisStore) Close() error {
	return s.client.Close()
}
