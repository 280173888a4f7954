package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryOption configures MemoryCache.
type MemoryOption func(*MemoryCache)

// WithMemoryMaxEntries bounds the number of stored keys; 0 is unbounded.
func WithMemoryMaxEntries(n int) MemoryOption {
	return func(mc *MemoryCache) { mc.maxEntries = n }
}

// WithMemoryJanitor sweeps expired entries every interval.
func WithMemoryJanitor(interval time.Duration) MemoryOption {
	return func(mc *MemoryCache) { mc.sweepEvery = interval }
}

// WithMemoryClock replaces time.Now, for tests.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(mc *MemoryCache) { mc.now = now }
}

type memoryItem struct {
	value    []byte
	expireAt time.Time
}

func (m memoryItem) expired(now time.Time) bool {
	return !m.expireAt.IsZero() && !now.Before(m.expireAt)
}

// MemoryCache implements Service in process. It backs the "memory" cloud
// store, so it never evicts live entries: a full cache rejects new keys.
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]memoryItem
	locks      map[string]time.Time
	maxEntries int
	sweepEvery time.Duration
	now        func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

var _ Service = (*MemoryCache)(nil)

// NewMemoryCache creates an in-memory cache. The janitor runs every 5m unless
// configured otherwise; a non-positive interval disables it.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	mc := &MemoryCache{
		items:      make(map[string]memoryItem),
		locks:      make(map[string]time.Time),
		sweepEvery: 5 * time.Minute,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(mc)
	}
	if mc.sweepEvery > 0 {
		go mc.janitor()
	}
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now()
	if old, exists := mc.items[key]; !exists || old.expired(now) {
		if mc.maxEntries > 0 && len(mc.items) >= mc.maxEntries {
			mc.sweepLocked(now)
			if len(mc.items) >= mc.maxEntries {
				return ErrCacheFull
			}
		}
	}

	item := memoryItem{value: append([]byte(nil), data...)}
	if expiration > 0 {
		item.expireAt = now.Add(expiration)
	}
	mc.items[key] = item
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	item, ok := mc.items[key]
	if ok && item.expired(mc.now()) {
		delete(mc.items, key)
		ok = false
	}
	mc.mu.Unlock()

	if !ok {
		return ErrCacheMiss
	}
	return decode(item.value, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		delete(mc.items, key)
	}
	return nil
}

// Keys returns matching live keys in lexical order.
func (mc *MemoryCache) Keys(_ context.Context, pattern string) ([]string, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now()
	keys := make([]string, 0)
	for key, item := range mc.items {
		if !item.expired(now) && matchPattern(pattern, key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// TryLock keeps locks apart from values so Keys never lists them.
func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now()
	if until, held := mc.locks[key]; held && now.Before(until) {
		return false, nil
	}
	mc.locks[key] = now.Add(ttl)
	return true, nil
}

func (mc *MemoryCache) Unlock(_ context.Context, key string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	delete(mc.locks, key)
	return nil
}

// Len reports stored entries, expired ones included until swept.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.items)
}

func (mc *MemoryCache) sweepLocked(now time.Time) {
	for key, item := range mc.items {
		if item.expired(now) {
			delete(mc.items, key)
		}
	}
	for key, until := range mc.locks {
		if !now.Before(until) {
			delete(mc.locks, key)
		}
	}
}

func (mc *MemoryCache) janitor() {
	t := time.NewTicker(mc.sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-mc.done:
			return
		case <-t.C:
			mc.mu.Lock()
			mc.sweepLocked(mc.now())
			mc.mu.Unlock()
		}
	}
}

// Close stops the janitor.
func (mc *MemoryCache) Close() error {
	mc.closeOnce.Do(func() { close(mc.done) })
	return nil
}
