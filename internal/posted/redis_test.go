package posted

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"econ-calendar-bot/internal/types"
)

func setupRedis(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	backend, err := NewRedisBackend(WithRedisAddr(mr.Addr()), WithRedisPrefix("test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return backend, mr
}

func TestRedisBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend, mr := setupRedis(t)

	ids, err := backend.Load(ctx, "earnings_update")
	require.NoError(t, err)
	assert.Nil(t, ids)

	store := New(backend)
	id := types.Identity{"2026-10-30", "AAPL"}
	require.NoError(t, store.Commit(ctx, "earnings_update", id))

	raw, err := mr.Get("test:posted:earnings_update")
	require.NoError(t, err)
	assert.JSONEq(t, `[["2026-10-30","AAPL"]]`, raw)

	restarted := New(backend)
	n, err := restarted.Load(ctx, "earnings_update")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, restarted.Contains("earnings_update", id))
}

func TestRedisBackendCorruptValue(t *testing.T) {
	backend, mr := setupRedis(t)
	require.NoError(t, mr.Set("test:posted:announcement", "not json"))

	_, err := backend.Load(context.Background(), "announcement")
	assert.ErrorIs(t, err, ErrStorageCorrupt)
}

func TestNewRedisBackendPingFails(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisBackend(WithRedisAddr(addr))
	assert.Error(t, err)
}
