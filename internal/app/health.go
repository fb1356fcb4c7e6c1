package app

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taoyao-code/soundweb-gateway/internal/health"
	redisstorage "github.com/taoyao-code/soundweb-gateway/internal/storage/redis"
)

// NewHealthAggregator 设备检查器始终存在，Redis/数据库按启用情况添加
func NewHealthAggregator(dev health.DeviceConn, addr string, redisClient *redisstorage.Client, dbpool *pgxpool.Pool) *health.Aggregator {
	agg := health.NewAggregator(health.NewDeviceChecker(dev, addr))
	if redisClient != nil {
		agg.AddChecker(health.NewRedisChecker(redisClient))
	}
	if dbpool != nil {
		agg.AddChecker(health.NewDatabaseChecker(dbpool))
	}
	return agg
}
