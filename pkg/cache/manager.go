package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Producer computes the value for a cache miss.
type Producer[V any] func(ctx context.Context) (V, error)

// Options configures a Manager.
type Options struct {
	// DefaultTTL is used when Get or Set receive a non-positive TTL.
	DefaultTTL time.Duration

	// ReplayErrors keeps failed entries until their TTL expires, so later
	// callers receive the same error. When false a failed entry is dropped
	// as soon as it settles and the next caller triggers a fresh producer.
	ReplayErrors bool

	// Clock returns the current time (default: time.Now).
	Clock func() time.Time

	// Logger for cache events (default: global logger, component "cache").
	Logger *zerolog.Logger
}

// Stats is a diagnostic snapshot of the cache.
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// Manager is an in-memory TTL cache of shared futures.
// Concurrent Get calls for the same live key share one producer invocation.
type Manager[V any] struct {
	mu      sync.Mutex
	entries map[string]*Entry[V]

	defaultTTL   time.Duration
	replayErrors bool
	now          func() time.Time
	logger       zerolog.Logger
}

// NewManager creates an empty cache.
func NewManager[V any](opts Options) *Manager[V] {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	logger := log.With().Str("component", "cache").Logger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Manager[V]{
		entries:      make(map[string]*Entry[V]),
		defaultTTL:   opts.DefaultTTL,
		replayErrors: opts.ReplayErrors,
		now:          opts.Clock,
		logger:       logger,
	}
}

// Get returns the stored future for key while it is live. On a miss it
// stores a new future, runs produce once in the background and returns it.
//
// The producer runs with a context detached from ctx's cancellation, so a
// waiter giving up does not fail the other waiters.
func (m *Manager[V]) Get(ctx context.Context, key string, produce Producer[V], ttl time.Duration) *Future[V] {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	m.mu.Lock()
	now := m.now()
	if entry, ok := m.entries[key]; ok && !entry.IsExpired(now) {
		m.mu.Unlock()
		CacheHits.WithLabelValues("memory").Inc()
		m.logger.Debug().Str("key", key).Dur("remaining", entry.Remaining(now)).Msg("Cache hit")
		return entry.future
	}

	_, replaced := m.entries[key]
	entry := &Entry[V]{
		future:    newFuture[V](),
		CreatedAt: now,
		TTL:       ttl,
	}
	m.entries[key] = entry
	m.mu.Unlock()

	if !replaced {
		CacheEntries.Inc()
	}
	CacheMisses.Inc()
	m.logger.Debug().Str("key", key).Dur("ttl", ttl).Msg("Cache miss")

	go m.run(context.WithoutCancel(ctx), key, entry, produce)

	return entry.future
}

// run invokes the producer and settles the entry's future.
func (m *Manager[V]) run(ctx context.Context, key string, entry *Entry[V], produce Producer[V]) {
	value, err := safeProduce(ctx, produce)

	if err != nil && !m.replayErrors {
		// Drop the entry before settling so no new caller joins a failure.
		if m.removeIf(key, entry) {
			CacheInvalidations.WithLabelValues("error").Inc()
		}
		m.logger.Debug().Err(err).Str("key", key).Msg("Producer failed, entry evicted")
	}

	entry.future.settle(value, err)
}

func safeProduce[V any](ctx context.Context, produce Producer[V]) (value V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cache producer panic: %v", r)
		}
	}()
	return produce(ctx)
}

// Has reports whether key holds a live entry. An expired entry is evicted.
func (m *Manager[V]) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return false
	}
	if entry.IsExpired(m.now()) {
		m.deleteLocked(key)
		CacheInvalidations.WithLabelValues("expired").Inc()
		return false
	}
	return true
}

// Set seeds key with an already-resolved value.
func (m *Manager[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	m.mu.Lock()
	_, replaced := m.entries[key]
	m.entries[key] = &Entry[V]{
		future:    Resolved(value),
		CreatedAt: m.now(),
		TTL:       ttl,
	}
	m.mu.Unlock()

	if !replaced {
		CacheEntries.Inc()
	}
}

// Invalidate removes key unconditionally.
func (m *Manager[V]) Invalidate(key string) {
	m.mu.Lock()
	_, ok := m.entries[key]
	if ok {
		m.deleteLocked(key)
	}
	m.mu.Unlock()

	if ok {
		CacheInvalidations.WithLabelValues("key").Inc()
		m.logger.Debug().Str("key", key).Msg("Cache invalidated")
	}
}

// InvalidatePattern removes every entry whose key contains substr and
// returns how many were removed.
func (m *Manager[V]) InvalidatePattern(substr string) int {
	m.mu.Lock()
	var removed []string
	for key := range m.entries {
		if strings.Contains(key, substr) {
			removed = append(removed, key)
		}
	}
	for _, key := range removed {
		m.deleteLocked(key)
	}
	m.mu.Unlock()

	if len(removed) > 0 {
		CacheInvalidations.WithLabelValues("pattern").Add(float64(len(removed)))
		m.logger.Debug().
			Str("pattern", substr).
			Strs("keys", removed).
			Msg("Cache invalidated by pattern")
	}
	return len(removed)
}

// Clear empties the cache.
func (m *Manager[V]) Clear() {
	m.mu.Lock()
	n := len(m.entries)
	m.entries = make(map[string]*Entry[V])
	m.mu.Unlock()

	CacheEntries.Sub(float64(n))
	CacheInvalidations.WithLabelValues("clear").Add(float64(n))
	m.logger.Debug().Int("removed", n).Msg("Cache cleared")
}

// Cleanup removes expired entries and returns how many were removed.
// It is meant to be called periodically, see Janitor.
func (m *Manager[V]) Cleanup() int {
	m.mu.Lock()
	now := m.now()
	removed := 0
	for key, entry := range m.entries {
		if entry.IsExpired(now) {
			m.deleteLocked(key)
			removed++
		}
	}
	m.mu.Unlock()

	if removed > 0 {
		CacheInvalidations.WithLabelValues("expired").Add(float64(removed))
		m.logger.Debug().Int("removed", removed).Msg("Cache cleanup")
	}
	return removed
}

// Stats returns the number of stored entries and their keys, sorted.
// Expired entries not yet swept are included.
func (m *Manager[V]) Stats() Stats {
	m.mu.Lock()
	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	m.mu.Unlock()

	sort.Strings(keys)
	return Stats{Size: len(keys), Keys: keys}
}

// removeIf deletes key only if it still maps to entry.
func (m *Manager[V]) removeIf(key string, entry *Entry[V]) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.entries[key]; ok && current == entry {
		m.deleteLocked(key)
		return true
	}
	return false
}

// deleteLocked must be called with m.mu held.
func (m *Manager[V]) deleteLocked(key string) {
	delete(m.entries, key)
	CacheEntries.Dec()
}
