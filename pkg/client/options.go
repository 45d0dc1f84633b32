package client

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// CacheConfig enables response caching for a GET or POST request.
type CacheConfig struct {
	Enabled bool

	// TTL overrides the client's default cache TTL.
	TTL time.Duration
}

// RequestOptions are per-request settings. A nil *RequestOptions is valid.
type RequestOptions struct {
	// Headers are added to the outgoing request.
	Headers http.Header

	// Params are encoded into the query string. For cached GETs they are
	// part of the cache key.
	Params url.Values

	// SkipLoading marks the request as background work, see pkg/loading.
	SkipLoading bool

	// Retry enables retries. Nil means a single attempt.
	Retry *RetryConfig

	// Cache is honoured for GET and POST only.
	Cache CacheConfig

	// Invalidate lists extra key substrings dropped from the cache after
	// the request succeeds.
	Invalidate []string
}

// TokenSource supplies the bearer token for outgoing requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(ctx context.Context) (string, error) {
	return string(t), nil
}
