package app

import (
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/soundweb-gateway/internal/config"
	"github.com/taoyao-code/soundweb-gateway/internal/state"
	redisstorage "github.com/taoyao-code/soundweb-gateway/internal/storage/redis"
)

// NewRedisClient 创建Redis客户端；未启用时返回 nil
func NewRedisClient(cfg cfgpkg.RedisConfig, logger *zap.Logger) (*redisstorage.Client, error) {
	if !cfg.Enabled {
		logger.Info("redis is disabled, using in-memory value store")
		return nil, nil
	}

	client, err := redisstorage.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("redis client initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("pool_size", cfg.PoolSize))
	return client, nil
}

// NewValueStore 有 Redis 时使用 Redis，否则使用内存
func NewValueStore(client *redisstorage.Client) state.Store {
	if client == nil {
		return state.NewMemoryStore()
	}
	return state.NewRedisStore(client)
}
