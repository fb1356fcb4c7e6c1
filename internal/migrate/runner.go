package migrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Runner 迁移执行器：FS 优先，否则读取 Dir 目录
type Runner struct {
	Dir string
	FS  fs.FS
}

func (r Runner) source() (fs.FS, error) {
	if r.FS != nil {
		return r.FS, nil
	}
	if r.Dir == "" {
		return nil, errors.New("migrations dir is empty")
	}
	return os.DirFS(r.Dir), nil
}

// EnsureTable 保证 schema_migrations 表存在
func EnsureTable(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
        version BIGINT PRIMARY KEY,
        applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`)
	return err
}

// AppliedVersions 已应用版本
func AppliedVersions(ctx context.Context, db *pgxpool.Pool) (map[int64]bool, error) {
	rows, err := db.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := make(map[int64]bool)
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		res[v] = true
	}
	return res, rows.Err()
}

type migrationFile struct {
	Version int64
	Path    string
}

// discoverUpMigrations 扫描 *_up.sql 按版本排序，文件名前缀数字为版本号
func discoverUpMigrations(fsys fs.FS) ([]migrationFile, error) {
	var files []migrationFile
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := filepath.Base(path)
		if !strings.HasSuffix(name, "_up.sql") {
			return nil
		}
		parts := strings.SplitN(name, "_", 2)
		if len(parts) == 0 {
			return nil
		}
		ver, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return nil
		}
		files = append(files, migrationFile{Version: ver, Path: path})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// Pending 返回尚未应用的迁移版本
func (r Runner) Pending(ctx context.Context, db *pgxpool.Pool) ([]int64, error) {
	fsys, err := r.source()
	if err != nil {
		return nil, err
	}
	ups, err := discoverUpMigrations(fsys)
	if err != nil {
		return nil, err
	}
	if err := EnsureTable(ctx, db); err != nil {
		return nil, err
	}
	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}
	var out []int64
	for _, m := range pendingFiles(ups, applied) {
		out = append(out, m.Version)
	}
	return out, nil
}

// pendingFiles 过滤出未应用的迁移，保持版本顺序
func pendingFiles(ups []migrationFile, applied map[int64]bool) []migrationFile {
	var out []migrationFile
	for _, m := range ups {
		if !applied[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

// Up 执行未应用的向上迁移，返回本次应用的数量
func (r Runner) Up(ctx context.Context, db *pgxpool.Pool) (int, error) {
	fsys, err := r.source()
	if err != nil {
		return 0, err
	}
	if err := EnsureTable(ctx, db); err != nil {
		return 0, err
	}
	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return 0, err
	}
	ups, err := discoverUpMigrations(fsys)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range pendingFiles(ups, applied) {
		content, err := fs.ReadFile(fsys, m.Path)
		if err != nil {
			return n, err
		}
		// 每个版本一个事务
		tx, err := db.Begin(ctx)
		if err != nil {
			return n, err
		}
		_, execErr := tx.Exec(ctx, string(content))
		if execErr == nil {
			_, execErr = tx.Exec(ctx, `INSERT INTO schema_migrations(version, applied_at) VALUES($1,$2)`, m.Version, time.Now())
		}
		if execErr != nil {
			_ = tx.Rollback(ctx)
			return n, fmt.Errorf("apply migration %d: %w", m.Version, execErr)
		}
		if err := tx.Commit(ctx); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
