package cache

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the store
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidRecord indicates the stored record is invalid or corrupted
	ErrInvalidRecord = errors.New("invalid cache record")
)

// Record is a settled HTTP response as kept by a shared Store.
type Record struct {
	// Data is the response body
	Data []byte `json:"data"`

	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// Headers are the response headers
	Headers http.Header `json:"headers"`

	// CachedAt is when we cached this response
	CachedAt time.Time `json:"cached_at"`

	// Expires is when the record becomes stale
	Expires time.Time `json:"expires"`
}

// IsExpired returns true if the record has expired.
func (r *Record) IsExpired() bool {
	return !time.Now().Before(r.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (r *Record) TTL() time.Duration {
	ttl := time.Until(r.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Store is a shared second cache layer behind the in-memory Manager.
// It only ever holds successful responses.
type Store interface {
	// Get returns ErrCacheMiss when key is absent or expired.
	Get(ctx context.Context, key string) (*Record, error)
	Set(ctx context.Context, key string, record *Record) error
	Delete(ctx context.Context, key string) error
	// DeleteMatching removes every key containing substr.
	DeleteMatching(ctx context.Context, substr string) (int, error)
}
