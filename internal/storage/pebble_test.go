package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmitUplenchwar2687/Rewind/internal/clock"
)

func newTestPebble(t *testing.T, dir string) (*PebbleStorage, *clock.Virtual) {
	t.Helper()
	vc := clock.NewVirtual(epoch)
	s, err := NewPebbleStorage(PebbleConfig{DataDir: dir}, vc)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, vc
}

func TestPebbleStorage_SetGetDelete(t *testing.T) {
	s, _ := newTestPebble(t, t.TempDir())

	val, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	val, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(val))

	require.NoError(t, s.Delete(ctx, "k"))
	val, _ = s.Get(ctx, "k")
	assert.Nil(t, val)
}

func TestPebbleStorage_Expiry(t *testing.T) {
	s, vc := newTestPebble(t, t.TempDir())

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	vc.Advance(59 * time.Second)
	val, _ := s.Get(ctx, "k")
	assert.Equal(t, "v", string(val))

	vc.Advance(time.Second)
	val, _ = s.Get(ctx, "k")
	assert.Nil(t, val)

	ok, err := s.SetIfAbsent(ctx, "k", []byte("again"), 0)
	require.NoError(t, err)
	assert.True(t, ok, "expired key counts as absent")
}

func TestPebbleStorage_SetIfAbsent(t *testing.T) {
	s, _ := newTestPebble(t, t.TempDir())

	ok, err := s.SetIfAbsent(ctx, "bind", []byte("first"), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetIfAbsent(ctx, "bind", []byte("second"), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	val, _ := s.Get(ctx, "bind")
	assert.Equal(t, "first", string(val))
}

func TestPebbleStorage_Reopen(t *testing.T) {
	dir := t.TempDir()
	vc := clock.NewVirtual(epoch)

	s, err := NewPebbleStorage(PebbleConfig{DataDir: dir, Sync: true}, vc)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", []byte("durable"), 0))
	require.NoError(t, s.Close())

	s2, err := NewPebbleStorage(PebbleConfig{DataDir: dir}, vc)
	require.NoError(t, err)
	defer s2.Close()

	val, err := s2.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "durable", string(val))
}

func TestPebbleStorage_RequiresDataDir(t *testing.T) {
	_, err := NewPebbleStorage(PebbleConfig{}, clock.NewReal())
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	s, err := Open(ctx, Options{}, clock.NewReal())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, s)
	require.NoError(t, s.Close())

	s, err = Open(ctx, Options{Backend: BackendPebble, Pebble: PebbleConfig{DataDir: t.TempDir()}}, clock.NewReal())
	require.NoError(t, err)
	assert.IsType(t, &PebbleStorage{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Backend: "etcd"}, clock.NewReal())
	assert.Error(t, err)
}
