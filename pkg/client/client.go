// Package client provides the backend HTTP client with retries, response
// caching and cache invalidation after mutations.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/lawdesk/lawdesk-client/pkg/cache"
	"github.com/lawdesk/lawdesk-client/pkg/envelope"
	"github.com/lawdesk/lawdesk-client/pkg/loading"
	"github.com/lawdesk/lawdesk-client/pkg/logging"
	"github.com/lawdesk/lawdesk-client/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// Response is a completed backend response. Cached responses are shared
// between callers and must not be modified.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Client is the backend API client. Scoped copies share cache, store and
// transport.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	loading    *loading.Tracker
	cache      *cache.Manager[*Response]
	cacheTTL   time.Duration
	store      cache.Store
	limiter    *ratelimit.Tracker
	tokens     TokenSource
	logger     zerolog.Logger

	// invalidations counts InvalidateCache/ClearCache calls. It is shared
	// by scoped copies.
	invalidations *atomic.Uint64

	// newTimer overrides the retry timer (tests).
	newTimer func() backoff.Timer
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the backend API, e.g. "https://api.example.com/api".
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout for a single HTTP attempt.
	Timeout time.Duration

	// HTTPClient overrides the default HTTP client. Its transport is
	// wrapped by the loading tracker.
	HTTPClient *http.Client

	// OnLoading is notified when requests start or stop being in flight.
	OnLoading func(loading bool)

	// CacheTTL is the default TTL for cached responses.
	CacheTTL time.Duration

	// ReplayCachedErrors keeps failed responses cached until their TTL.
	ReplayCachedErrors bool

	// Store is an optional shared second cache layer (e.g. cache.RedisStore).
	Store cache.Store

	// RateLimiter paces requests and honours 429/503 back-pressure.
	RateLimiter *ratelimit.Tracker

	// TokenSource supplies the bearer token.
	TokenSource TokenSource

	// Logger overrides the default component logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns a default configuration for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "lawdesk-client/1.0",
		Timeout:   30 * time.Second,
		CacheTTL:  cache.DefaultTTL,
	}
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %v)", cfg.Timeout)
	}
	if cfg.CacheTTL < 0 {
		return nil, fmt.Errorf("cache ttl must be >= 0 (got %v)", cfg.CacheTTL)
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}

	logger := logging.NewLogger(logging.ComponentClient)
	cacheLogger := logging.NewLogger(logging.ComponentCache)
	if cfg.Logger != nil {
		logger = *cfg.Logger
		cacheLogger = cfg.Logger.With().Str("component", logging.ComponentCache).Logger()
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.HTTPClient != nil {
		copied := *cfg.HTTPClient
		httpClient = &copied
	}
	tracker := loading.NewTracker(httpClient.Transport, cfg.OnLoading)
	httpClient.Transport = tracker

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: httpClient,
		loading:    tracker,
		cache: cache.NewManager[*Response](cache.Options{
			DefaultTTL:   cfg.CacheTTL,
			ReplayErrors: cfg.ReplayCachedErrors,
			Logger:       &cacheLogger,
		}),
		cacheTTL:      cfg.CacheTTL,
		store:         cfg.Store,
		limiter:       cfg.RateLimiter,
		tokens:        cfg.TokenSource,
		logger:        logger,
		invalidations: new(atomic.Uint64),
	}, nil
}

// Scope returns a client whose base URL is extended by path.
func (c *Client) Scope(path string) *Client {
	scoped := *c
	scoped.baseURL = c.baseURL + path
	return &scoped
}

// WithTokenSource returns a client using ts for bearer tokens. A nil ts
// sends no Authorization header.
func (c *Client) WithTokenSource(ts TokenSource) *Client {
	scoped := *c
	scoped.tokens = ts
	return &scoped
}

// BaseURL returns the client's base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Cache returns the in-memory response cache.
func (c *Client) Cache() *cache.Manager[*Response] {
	return c.cache
}

// Loading reports whether a tracked request is in flight.
func (c *Client) Loading() bool {
	return c.loading.Loading()
}

// Get performs a GET request to baseURL+endpoint.
func (c *Client) Get(ctx context.Context, endpoint string, opts *RequestOptions) (*Response, error) {
	return c.request(ctx, http.MethodGet, endpoint, nil, opts)
}

// Post performs a POST request. With caching enabled the body is part of
// the cache key, for list and search endpoints.
func (c *Client) Post(ctx context.Context, endpoint string, body any, opts *RequestOptions) (*Response, error) {
	return c.request(ctx, http.MethodPost, endpoint, body, opts)
}

// Put performs a PUT request and invalidates cached keys containing endpoint.
func (c *Client) Put(ctx context.Context, endpoint string, body any, opts *RequestOptions) (*Response, error) {
	return c.request(ctx, http.MethodPut, endpoint, body, opts)
}

// Patch performs a PATCH request and invalidates cached keys containing endpoint.
func (c *Client) Patch(ctx context.Context, endpoint string, body any, opts *RequestOptions) (*Response, error) {
	return c.request(ctx, http.MethodPatch, endpoint, body, opts)
}

// Delete performs a DELETE request and invalidates cached keys containing
// endpoint. body may be nil.
func (c *Client) Delete(ctx context.Context, endpoint string, body any, opts *RequestOptions) (*Response, error) {
	return c.request(ctx, http.MethodDelete, endpoint, body, opts)
}

// InvalidateCache drops every cached response whose key contains pattern,
// in memory and in the shared store.
func (c *Client) InvalidateCache(ctx context.Context, pattern string) {
	if pattern == "" {
		return
	}
	c.invalidations.Add(1)

	removed := c.cache.InvalidatePattern(pattern)

	if c.store != nil {
		n, err := c.store.DeleteMatching(ctx, pattern)
		if err != nil {
			c.logger.Warn().Err(err).Str("pattern", pattern).Msg("Failed to invalidate shared cache")
		}
		removed += n
	}

	c.logger.Debug().Str("pattern", pattern).Int("removed", removed).Msg("Invalidated cached responses")
}

// ClearCache empties the in-memory cache and the shared store.
func (c *Client) ClearCache(ctx context.Context) {
	c.invalidations.Add(1)
	c.cache.Clear()
	if c.store != nil {
		if _, err := c.store.DeleteMatching(ctx, ""); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to clear shared cache")
		}
	}
}

func (c *Client) request(ctx context.Context, method, endpoint string, body any, opts *RequestOptions) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	fullURL := c.baseURL + endpoint

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	fetch := func(ctx context.Context) (*Response, error) {
		return c.execute(ctx, method, fullURL, payload, opts)
	}

	var (
		resp *Response
		err  error
	)
	if opts.Cache.Enabled && (method == http.MethodGet || method == http.MethodPost) {
		var keyPayload any = body
		if method == http.MethodGet && len(opts.Params) > 0 {
			keyPayload = opts.Params
		}
		resp, err = c.cached(ctx, cache.Key{Method: method, URL: fullURL, Payload: keyPayload}.String(), opts.Cache.TTL, fetch)
	} else {
		resp, err = fetch(ctx)
	}
	if err != nil {
		return nil, err
	}

	switch method {
	case http.MethodPut, http.MethodPatch, http.MethodDelete:
		c.InvalidateCache(ctx, endpoint)
	}
	for _, pattern := range opts.Invalidate {
		c.InvalidateCache(ctx, pattern)
	}

	return resp, nil
}

// cached serves key from the memory cache, then the shared store, then fetch.
// A fetched response is not kept in the shared store when an invalidation
// ran while it was in flight.
func (c *Client) cached(ctx context.Context, key string, ttl time.Duration, fetch cache.Producer[*Response]) (*Response, error) {
	if ttl <= 0 {
		ttl = c.cacheTTL
	}

	produce := func(ctx context.Context) (*Response, error) {
		generation := c.invalidations.Load()

		if c.store != nil {
			record, err := c.store.Get(ctx, key)
			switch {
			case err == nil:
				return &Response{StatusCode: record.StatusCode, Header: record.Headers, Body: record.Data}, nil
			case !errors.Is(err, cache.ErrCacheMiss):
				c.logger.Warn().Err(err).Str("key", key).Msg("Shared cache read failed")
			}
		}

		resp, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		if c.store != nil {
			if c.invalidations.Load() != generation {
				c.logger.Debug().Str("key", key).Msg("Skipping shared cache write after invalidation")
				return resp, nil
			}

			now := time.Now()
			record := &cache.Record{
				Data:       resp.Body,
				StatusCode: resp.StatusCode,
				Headers:    resp.Header,
				CachedAt:   now,
				Expires:    now.Add(ttl),
			}
			if err := c.store.Set(ctx, key, record); err != nil {
				c.logger.Warn().Err(err).Str("key", key).Msg("Shared cache write failed")
			}

			// An invalidation between the check and Set may have missed
			// this record.
			if c.invalidations.Load() != generation {
				if err := c.store.Delete(ctx, key); err != nil {
					c.logger.Warn().Err(err).Str("key", key).Msg("Failed to drop stale shared cache record")
				}
			}
		}
		return resp, nil
	}

	return c.cache.Get(ctx, key, produce, ttl).Wait(ctx)
}

// execute sends the request, retrying when opts.Retry is set.
func (c *Client) execute(ctx context.Context, method, rawURL string, payload []byte, opts *RequestOptions) (*Response, error) {
	var resp *Response
	attempt := func() error {
		r, err := c.do(ctx, method, rawURL, payload, opts)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}

	if opts.Retry == nil {
		if err := attempt(); err != nil {
			return nil, err
		}
		return resp, nil
	}

	var timer backoff.Timer
	if c.newTimer != nil {
		timer = c.newTimer()
	}
	if err := retryWithBackoff(ctx, *opts.Retry, timer, c.logger, attempt); err != nil {
		return nil, err
	}
	return resp, nil
}

// do performs a single HTTP attempt.
func (c *Client) do(ctx context.Context, method, rawURL string, payload []byte, opts *RequestOptions) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if len(opts.Params) > 0 {
		query := req.URL.Query()
		for name, values := range opts.Params {
			for _, v := range values {
				query.Add(name, v)
			}
		}
		req.URL.RawQuery = query.Encode()
	}

	for name, values := range opts.Headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", uuid.NewString())
	}
	if opts.SkipLoading {
		req.Header.Set(loading.SkipHeader, "true")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("get access token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", rawURL).
		Str("request_id", req.Header.Get("X-Request-ID")).
		Msg("Executing request")

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	requestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, c.networkError(method, rawURL, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, c.networkError(method, rawURL, fmt.Errorf("read response body: %w", err))
	}

	status := httpResp.StatusCode
	requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()

	if c.limiter != nil {
		c.limiter.Observe(ctx, status, httpResp.Header)
	}

	if status >= 400 {
		class := classifyStatus(status)
		errorsTotal.WithLabelValues(string(class)).Inc()

		httpErr := &HTTPError{
			Method:     method,
			URL:        rawURL,
			StatusCode: status,
			Class:      class,
			Message:    envelope.Message(data),
			Body:       data,
		}
		c.logger.Warn().
			Str("method", method).
			Str("url", rawURL).
			Int("status_code", status).
			Str("error_class", string(class)).
			Str("message", httpErr.Message).
			Msg("Backend request failed")
		return nil, httpErr
	}

	return &Response{
		StatusCode: status,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

func (c *Client) networkError(method, rawURL string, err error) *HTTPError {
	errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
	requestsTotal.WithLabelValues(method, "network_error").Inc()
	c.logger.Warn().Err(err).Str("method", method).Str("url", rawURL).Msg("HTTP request failed")

	return &HTTPError{
		Method: method,
		URL:    rawURL,
		Class:  ErrorClassNetwork,
		Err:    err,
	}
}
