package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(opts ...MemoryOption) (*MemoryCache, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	opts = append([]MemoryOption{WithMemoryJanitor(0), WithMemoryClock(clk.now)}, opts...)
	return NewMemoryCache(opts...), clk
}

func TestMemoryCache_TypedRoundTripAndExpiry(t *testing.T) {
	mc, clk := newTestCache()
	defer mc.Close()
	ctx := context.Background()

	type model struct {
		ID      string  `json:"id"`
		Version int     `json:"version"`
		Acc     float64 `json:"accuracy"`
	}
	require.NoError(t, mc.Set(ctx, Key("models", "btc"), model{ID: "btc", Version: 3, Acc: 0.71}, time.Minute))

	got, err := GetTyped[model](ctx, mc, "models:btc")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)

	clk.advance(time.Minute)
	_, err = GetTyped[model](ctx, mc, "models:btc")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Zero(t, mc.Len())
}

func TestMemoryCache_KeysSkipsLocksAndExpired(t *testing.T) {
	mc, clk := newTestCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "models:b", "2", 0))
	require.NoError(t, mc.Set(ctx, "models:a", "1", 0))
	require.NoError(t, mc.Set(ctx, "models:tmp", "x", time.Second))
	require.NoError(t, mc.Set(ctx, "training:market", "[]", 0))
	ok, err := mc.TryLock(ctx, "models:lock", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	clk.advance(2 * time.Second)
	keys, err := mc.Keys(ctx, PrefixPattern("models"))
	require.NoError(t, err)
	assert.Equal(t, []string{"models:a", "models:b"}, keys)
}

func TestMemoryCache_RejectsWhenFull(t *testing.T) {
	mc, clk := newTestCache(WithMemoryMaxEntries(2))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", "1", 0))
	require.NoError(t, mc.Set(ctx, "b", "2", time.Second))
	assert.ErrorIs(t, mc.Set(ctx, "c", "3", 0), ErrCacheFull)
	// overwriting an existing key is always allowed
	assert.NoError(t, mc.Set(ctx, "a", "1b", 0))

	clk.advance(time.Second)
	assert.NoError(t, mc.Set(ctx, "c", "3", 0))

	var s string
	require.NoError(t, mc.Get(ctx, "a", &s))
	assert.Equal(t, "1b", s)
}

func TestMemoryCache_LockExpires(t *testing.T) {
	mc, clk := newTestCache()
	defer mc.Close()
	ctx := context.Background()

	ok, _ := mc.TryLock(ctx, "sync", 30*time.Second)
	require.True(t, ok)
	ok, _ = mc.TryLock(ctx, "sync", 30*time.Second)
	assert.False(t, ok)

	clk.advance(30 * time.Second)
	ok, _ = mc.TryLock(ctx, "sync", 30*time.Second)
	assert.True(t, ok)

	require.NoError(t, mc.Unlock(ctx, "sync"))
	ok, _ = mc.TryLock(ctx, "sync", time.Second)
	assert.True(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "bitlearn:models:btc", Key("bitlearn", "models", "btc"))
	assert.Equal(t, "models", Key("", "models"))
	assert.Equal(t, "insights:*", PrefixPattern("insights"))
}
