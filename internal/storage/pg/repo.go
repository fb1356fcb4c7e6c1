package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// 事件方向
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// EventRecord 协议事件审计记录
type EventRecord struct {
	ID        int64     `json:"id"`
	ConnID    string    `json:"conn_id,omitempty"`
	Direction string    `json:"direction"`
	Kind      string    `json:"kind"`
	Payload   []byte    `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository 事件审计日志
type Repository struct {
	Pool *pgxpool.Pool
}

// InsertEvent 写入一条事件，CreatedAt 为零值时使用数据库时间
func (r *Repository) InsertEvent(ctx context.Context, ev EventRecord) error {
	const q = `INSERT INTO soundweb_events (conn_id, direction, kind, payload, created_at)
               VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))`
	var at *time.Time
	if !ev.CreatedAt.IsZero() {
		at = &ev.CreatedAt
	}
	if _, err := r.Pool.Exec(ctx, q, ev.ConnID, ev.Direction, ev.Kind, ev.Payload, at); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// RecentEvents 按时间倒序返回最近的事件
func (r *Repository) RecentEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	const q = `SELECT id, conn_id, direction, kind, payload, created_at
               FROM soundweb_events ORDER BY id DESC LIMIT $1`
	rows, err := r.Pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var ev EventRecord
		if err := rows.Scan(&ev.ID, &ev.ConnID, &ev.Direction, &ev.Kind, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
