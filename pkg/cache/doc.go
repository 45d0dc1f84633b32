// Package cache provides the response cache used by the lawdesk API client.
//
// The Manager is an in-memory TTL map of shared futures with the following
// features:
//
// - At most one producer invocation per key per TTL window
// - Late waiters receive the settled value without re-running the producer
// - Substring invalidation after mutating requests
// - Deterministic cache keys (sorted JSON payloads)
// - Optional shared second layer (Store) backed by Redis
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	manager := cache.NewManager[[]byte](cache.Options{DefaultTTL: 2 * time.Minute})
//
//	key := cache.Key{
//		Method:  "POST",
//		URL:     "https://api.example.com/api/cases/list",
//		Payload: map[string]any{"page": 1},
//	}.String()
//
//	future := manager.Get(ctx, key, func(ctx context.Context) ([]byte, error) {
//		return fetch(ctx)
//	}, 0)
//
//	body, err := future.Wait(ctx)
//
// # Invalidation
//
//	// after a successful PUT to /cases/update
//	manager.InvalidatePattern("/cases/update")
//
// Expired entries are logically absent but stay in the map until Has, Get
// or Cleanup touches them. Run a Janitor to sweep them periodically:
//
//	go cache.NewJanitor(manager, time.Minute, logger).Run(ctx)
//
// # Metrics
//
//   - lawdesk_cache_hits_total{layer} - Cache hits (memory, redis)
//   - lawdesk_cache_misses_total - Cache misses
//   - lawdesk_cache_entries - Entries currently held in memory
//   - lawdesk_cache_invalidations_total{reason} - Removed entries
//   - lawdesk_cache_errors_total{operation} - Shared store errors
package cache
