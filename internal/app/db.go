package app

import (
	"context"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/taoyao-code/soundweb-gateway/db"
	cfgpkg "github.com/taoyao-code/soundweb-gateway/internal/config"
	"github.com/taoyao-code/soundweb-gateway/internal/migrate"
	pgstorage "github.com/taoyao-code/soundweb-gateway/internal/storage/pg"
)

// ConnectDBAndMigrate 建立审计库连接并执行迁移；未启用时返回 nil
func ConnectDBAndMigrate(ctx context.Context, cfg cfgpkg.DatabaseConfig, log *zap.Logger) (*pgxpool.Pool, error) {
	if !cfg.Enable {
		log.Info("database is disabled, event log off")
		return nil, nil
	}
	dbpool, err := pgstorage.NewPool(ctx, cfg, log)
	if err != nil {
		log.Error("db connect error", zap.Error(err))
		return nil, err
	}

	runner := migrate.Runner{Dir: cfg.MigrationsDir}
	if cfg.MigrationsDir == "" {
		sub, err := fs.Sub(db.Migrations, "migrations")
		if err != nil {
			dbpool.Close()
			return nil, err
		}
		runner.FS = sub
	}
	pending, err := runner.Pending(ctx, dbpool)
	if err != nil {
		log.Error("db migrate check error", zap.Error(err))
		dbpool.Close()
		return nil, err
	}
	if len(pending) > 0 {
		log.Info("db migrations pending", zap.Int64s("versions", pending))
	}
	n, err := runner.Up(ctx, dbpool)
	if err != nil {
		log.Error("db migrate error", zap.Error(err))
		dbpool.Close()
		return nil, err
	}
	log.Info("db migrations applied", zap.Int("count", n))
	return dbpool, nil
}
