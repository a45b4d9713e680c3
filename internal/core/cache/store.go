package cache

import (
	"context"
	"fmt"
	"time"

	"recipe-planner/internal/infrastructure/config"
	"recipe-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// Store 快取介面，未命中時回傳 common.ErrCacheMiss
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Stats(ctx context.Context) map[string]interface{}
	Close() error
}

// NewStore 依設定建立快取；停用時回傳 nil
func NewStore(cfg config.CacheConfig) (Store, error) {
	if !cfg.Enabled {
		common.LogInfo("Cache disabled")
		return nil, nil
	}

	switch cfg.Backend {
	case config.CacheBackendRedis:
		store, err := NewRedisStore(cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.CacheBackendMemory, "":
		return NewManager(cfg), nil
	default:
		common.LogError("Unknown cache backend", zap.String("backend", cfg.Backend))
		return nil, fmt.Errorf("unknown cache backend: %q", cfg.Backend)
	}
}
