package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/config"
)

// LookupObserver is told about every Do lookup
type LookupObserver func(ctx context.Context, op string, hit bool)

// cacheEntry is tagged with the root fingerprint of the dataset it was
// computed from, so filtered views are invalidated with their parent.
type cacheEntry struct {
	value     any
	root      string
	cachedAt  time.Time
	expiresAt time.Time
	hitCount  int
}

// Memo is a read-through TTL cache for pure computations
type Memo struct {
	entries   map[string]cacheEntry
	mutex     sync.RWMutex
	ttl       time.Duration
	maxSize   int
	hitCount  int64
	missCount int64

	// epochs counts invalidations per root; a computation that started
	// before an invalidation does not store its result
	epochs map[string]uint64

	group    singleflight.Group
	observer LookupObserver
	now      func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
}

// Stats is a snapshot of cache counters
type Stats struct {
	Entries    int     `json:"entries"`
	MaxSize    int     `json:"max_size"`
	Hits       int64   `json:"hit_count"`
	Misses     int64   `json:"miss_count"`
	HitRatio   float64 `json:"hit_ratio"`
	TTLSeconds float64 `json:"ttl_seconds"`
}

// New creates a memo and starts its cleanup loop. A zero TTL uses the
// default of one hour; a cleanup interval of zero disables the loop.
func New(cfg config.CacheConfig) *Memo {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = config.DefaultCacheTTL
	}

	m := &Memo{
		entries:  make(map[string]cacheEntry),
		epochs:   make(map[string]uint64),
		ttl:      ttl,
		maxSize:  cfg.MaxEntries,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		go m.cleanup(cfg.CleanupInterval)
	}
	return m
}

// SetObserver installs a hook called on every Do lookup
func (m *Memo) SetObserver(o LookupObserver) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.observer = o
}

// Key builds the cache key of op over a dataset fingerprint. params must be
// JSON-serializable; equal params give equal keys.
func Key(op, fingerprint string, params any) (string, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode %s params: %w", op, err)
	}
	return op + "|" + fingerprint + "|" + string(encoded), nil
}

// Get returns a live entry
func (m *Memo) Get(key string) (any, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	entry, exists := m.entries[key]
	if !exists || m.now().After(entry.expiresAt) {
		m.missCount++
		return nil, false
	}

	entry.hitCount++
	m.entries[key] = entry
	m.hitCount++

	return entry.value, true
}

// Set stores value under key, tagged with the root dataset fingerprint
func (m *Memo) Set(key, root string, value any) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.store(key, root, value)
}

// setIfCurrent stores value unless root was invalidated after epoch was read
func (m *Memo) setIfCurrent(key, root string, epoch uint64, value any) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.epochs[root] == epoch {
		m.store(key, root, value)
	}
}

func (m *Memo) epoch(root string) uint64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.epochs[root]
}

func (m *Memo) store(key, root string, value any) {
	// Don't store anything if max size is 0
	if m.maxSize <= 0 {
		return
	}

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxSize {
		m.evictOldest()
	}

	now := m.now()
	m.entries[key] = cacheEntry{
		value:     value,
		root:      root,
		cachedAt:  now,
		expiresAt: now.Add(m.ttl),
	}
}

// Do returns the cached result of op for (fingerprint, params) or computes
// and stores it. Concurrent callers with the same key wait for a single
// computation. Errors are returned to every waiter and never cached.
func Do[T any](ctx context.Context, m *Memo, op, fingerprint string, params any, compute func() (T, error)) (T, error) {
	return DoScoped(ctx, m, fingerprint, op, fingerprint, params, compute)
}

// DoScoped is Do for a dataset derived from root, such as a filtered view.
// InvalidateFingerprint(root) drops its entries, and a result computed
// across that invalidation is returned but not stored.
func DoScoped[T any](ctx context.Context, m *Memo, root, op, fingerprint string, params any, compute func() (T, error)) (T, error) {
	var zero T

	key, err := Key(op, fingerprint, params)
	if err != nil {
		return zero, err
	}

	epoch := m.epoch(root)
	if v, ok := m.Get(key); ok {
		m.observe(ctx, op, true)
		return v.(T), nil
	}
	m.observe(ctx, op, false)

	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		m.setIfCurrent(key, root, epoch, result)
		return result, nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

func (m *Memo) observe(ctx context.Context, op string, hit bool) {
	m.mutex.RLock()
	o := m.observer
	m.mutex.RUnlock()
	if o != nil {
		o(ctx, op, hit)
	}
}

// InvalidateFingerprint drops every entry computed from the dataset or a
// view derived from it and returns how many were removed
func (m *Memo) InvalidateFingerprint(root string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.epochs[root]++
	removed := 0
	for key, entry := range m.entries {
		if entry.root == root {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Clear removes all entries but keeps the counters
func (m *Memo) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.entries = make(map[string]cacheEntry)
}

// Stats returns cache statistics
func (m *Memo) Stats() Stats {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	totalRequests := m.hitCount + m.missCount
	hitRatio := float64(0)
	if totalRequests > 0 {
		hitRatio = float64(m.hitCount) / float64(totalRequests)
	}

	return Stats{
		Entries:    len(m.entries),
		MaxSize:    m.maxSize,
		Hits:       m.hitCount,
		Misses:     m.missCount,
		HitRatio:   hitRatio,
		TTLSeconds: m.ttl.Seconds(),
	}
}

func (m *Memo) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range m.entries {
		if oldestKey == "" || entry.cachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.cachedAt
		}
	}

	if oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}

// removeExpired deletes entries past their TTL and returns how many went
func (m *Memo) removeExpired() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.now()
	removed := 0
	for key, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Stop gracefully stops the cache cleanup goroutine. It is safe to call
// more than once.
func (m *Memo) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *Memo) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.removeExpired()
		case <-m.stopChan:
			return
		}
	}
}
