// Package state 缓存每个控件最后一次已知的 SET_VALUE 值。
package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/taoyao-code/soundweb-gateway/internal/protocol/soundweb"
)

// ErrNotFound 控件没有已知值
var ErrNotFound = errors.New("value not found")

// Source 值的来源
type Source string

const (
	SourceDevice Source = "device" // 设备上报
	SourceAPI    Source = "api"    // 本端下发成功
)

// Value 控件的最后已知值
type Value struct {
	Group     soundweb.Group `json:"-"`
	GroupName string         `json:"group"`
	ID        byte           `json:"id"`
	Value     uint16         `json:"value"`
	Source    Source         `json:"source"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewValue 由 SET_VALUE 构造
func NewValue(v soundweb.SetValue, src Source, at time.Time) Value {
	return Value{
		Group:     v.Group,
		GroupName: v.Group.String(),
		ID:        v.ID,
		Value:     v.Value,
		Source:    src,
		UpdatedAt: at,
	}
}

// Store 值存储
type Store interface {
	Put(ctx context.Context, v Value) error
	Get(ctx context.Context, g soundweb.Group, id byte) (Value, error)
	List(ctx context.Context) ([]Value, error)
}

// field 存储键，形如 SW_AMX_LEVEL:5
func field(g soundweb.Group, id byte) string {
	return fmt.Sprintf("%s:%d", g, id)
}

func sortValues(vs []Value) {
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].Group != vs[j].Group {
			return vs[i].Group < vs[j].Group
		}
		return vs[i].ID < vs[j].ID
	})
}

// MemoryStore 进程内实现
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]Value
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]Value)}
}

func (s *MemoryStore) Put(_ context.Context, v Value) error {
	s.mu.Lock()
	s.values[field(v.Group, v.ID)] = v
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, g soundweb.Group, id byte) (Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[field(g, id)]
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrNotFound, field(g, id))
	}
	return v, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Value, error) {
	s.mu.RLock()
	out := make([]Value, 0, len(s.values))
	for _, v := range s.values {
		out = append(out, v)
	}
	s.mu.RUnlock()
	sortValues(out)
	return out, nil
}
