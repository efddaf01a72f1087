package storage

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStorage) {
	t.Helper()
	mr := miniredis.RunT(t)

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	s, err := NewRedisStorage(ctx, &RedisConfig{Host: mr.Host(), Port: port})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return mr, s
}

func TestRedisStorage_SetGet(t *testing.T) {
	mr, s := setupTestRedis(t)

	require.NoError(t, s.Set(ctx, "session:abc", []byte(`{"state":"empty"}`), 0))

	val, err := s.Get(ctx, "session:abc")
	require.NoError(t, err)
	assert.Equal(t, `{"state":"empty"}`, string(val))
	assert.True(t, mr.Exists(DefaultRedisPrefix+"session:abc"), "key should carry the prefix")
}

func TestRedisStorage_GetMissing(t *testing.T) {
	_, s := setupTestRedis(t)

	val, err := s.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestRedisStorage_SetIfAbsent(t *testing.T) {
	_, s := setupTestRedis(t)

	ok, err := s.SetIfAbsent(ctx, "bind", []byte("first"), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetIfAbsent(ctx, "bind", []byte("second"), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	val, _ := s.Get(ctx, "bind")
	assert.Equal(t, "first", string(val))
}

func TestRedisStorage_Expiry(t *testing.T) {
	mr, s := setupTestRedis(t)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	mr.FastForward(2 * time.Minute)

	val, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestRedisStorage_Delete(t *testing.T) {
	_, s := setupTestRedis(t)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))

	val, _ := s.Get(ctx, "k")
	assert.Nil(t, val)
}

func TestRedisStorage_CloseIdempotent(t *testing.T) {
	_, s := setupTestRedis(t)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestRedisConfig_WithDefaults(t *testing.T) {
	_, err := NewRedisStorage(context.Background(), nil)
	assert.Error(t, err)

	_, err = RedisConfig{Port: 6379}.withDefaults()
	assert.Error(t, err, "host is required")

	_, err = RedisConfig{Host: "localhost"}.withDefaults()
	assert.Error(t, err, "port is required")

	_, err = RedisConfig{Cluster: true}.withDefaults()
	assert.Error(t, err, "cluster nodes are required")

	conf, err := RedisConfig{Host: "localhost", Port: 6379}.withDefaults()
	require.NoError(t, err)
	assert.Equal(t, defaultRedisPoolSize, conf.PoolSize)
	assert.Equal(t, defaultRedisMaxRetries, conf.MaxRetries)
	assert.Equal(t, defaultRedisDialTimeout, conf.DialTimeout)
	assert.Equal(t, DefaultRedisPrefix, conf.Prefix)
}

func TestNewRedisStorage_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	mr.Close()

	_, err = NewRedisStorage(ctx, &RedisConfig{Host: mr.Host(), Port: port, MaxRetries: 1, DialTimeout: 100 * time.Millisecond})
	assert.Error(t, err)
}
