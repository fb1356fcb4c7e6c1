package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/taoyao-code/soundweb-gateway/internal/protocol/soundweb"
	redisstorage "github.com/taoyao-code/soundweb-gateway/internal/storage/redis"
)

const valuesKey = "values"

// RedisStore 以 Hash 保存所有控件值：key=<prefix>values，field=GROUP:id，value=JSON
type RedisStore struct {
	client *redisstorage.Client
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redisstorage.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, v Value) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	if err := s.client.HSet(ctx, s.client.Key(valuesKey), field(v.Group, v.ID), data).Err(); err != nil {
		return fmt.Errorf("hset value: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, g soundweb.Group, id byte) (Value, error) {
	data, err := s.client.HGet(ctx, s.client.Key(valuesKey), field(g, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Value{}, fmt.Errorf("%w: %s", ErrNotFound, field(g, id))
	}
	if err != nil {
		return Value{}, fmt.Errorf("hget value: %w", err)
	}
	return unmarshalValue(data)
}

func (s *RedisStore) List(ctx context.Context) ([]Value, error) {
	all, err := s.client.HGetAll(ctx, s.client.Key(valuesKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall values: %w", err)
	}
	out := make([]Value, 0, len(all))
	for _, raw := range all {
		v, err := unmarshalValue([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	sortValues(out)
	return out, nil
}

func unmarshalValue(data []byte) (Value, error) {
	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return Value{}, fmt.Errorf("unmarshal value: %w", err)
	}
	g, ok := soundweb.ParseGroup(v.GroupName)
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", soundweb.ErrInvalidGroup, v.GroupName)
	}
	v.Group = g
	return v, nil
}
