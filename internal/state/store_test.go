package state

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/soundweb-gateway/internal/protocol/soundweb"
	redisstorage "github.com/taoyao-code/soundweb-gateway/internal/storage/redis"
)

func setupTestRedis(t *testing.T) *redisstorage.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // 测试专用库
	})
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping test")
		return nil
	}
	rdb.FlushDB(ctx)
	t.Cleanup(func() {
		rdb.FlushDB(ctx)
		rdb.Close()
	})
	return redisstorage.Wrap(rdb, "soundweb:test:")
}

// exerciseStore 两种实现共用的行为用例
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	_, err := s.Get(ctx, soundweb.GroupLevel, 5)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	level := NewValue(soundweb.SetValue{Group: soundweb.GroupLevel, ID: 5, Value: 1000}, SourceDevice, at)
	button := NewValue(soundweb.SetValue{Group: soundweb.GroupButton, ID: 9, Value: 1}, SourceAPI, at)
	require.NoError(t, s.Put(ctx, level))
	require.NoError(t, s.Put(ctx, button))

	got, err := s.Get(ctx, soundweb.GroupLevel, 5)
	require.NoError(t, err)
	assert.Equal(t, level, got)

	// 覆盖写
	level.Value = 2000
	require.NoError(t, s.Put(ctx, level))
	got, err = s.Get(ctx, soundweb.GroupLevel, 5)
	require.NoError(t, err)
	assert.Equal(t, uint16(2000), got.Value)

	list, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, soundweb.GroupButton, list[0].Group)
	assert.Equal(t, soundweb.GroupLevel, list[1].Group)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	client := setupTestRedis(t)
	exerciseStore(t, NewRedisStore(client))
}

func TestRedisStore_CorruptEntry(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, client.HSet(ctx, client.Key(valuesKey), "SW_AMX_LEVEL:1", "{not json").Err())

	s := NewRedisStore(client)
	_, err := s.Get(ctx, soundweb.GroupLevel, 1)
	assert.Error(t, err)
	_, err = s.List(ctx)
	assert.Error(t, err)
}

func TestNewValue(t *testing.T) {
	v := NewValue(soundweb.SetValue{Group: soundweb.GroupSource, ID: 3, Value: 2}, SourceAPI, time.Time{})
	assert.Equal(t, "SW_AMX_SOURCE", v.GroupName)
	assert.Equal(t, "SW_AMX_SOURCE:3", field(v.Group, v.ID))
}
