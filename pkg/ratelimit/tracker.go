package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for request pacing.
var (
	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lawdesk_rate_limit_waits_total",
		Help: "Total number of requests delayed by the local rate limiter or a server pause",
	})

	rateLimitPausesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lawdesk_rate_limit_pauses_total",
		Help: "Total number of pauses requested by the backend (429/503)",
	})
)

// extendPauseScript stores ARGV[1] (paused-until, unix ms) with a TTL of
// ARGV[2] ms unless the key already holds a later pause.
var extendPauseScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if tonumber(ARGV[1]) > current then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
	return 1
end
return 0
`)

// Config configures a Tracker.
type Config struct {
	// RequestsPerSecond is the steady request rate. Zero or less disables pacing.
	RequestsPerSecond float64

	// Burst is the bucket size (minimum 1).
	Burst int

	// Redis optionally shares server pauses between instances.
	Redis redis.Cmdable
}

// DefaultConfig returns a conservative pacing configuration.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 10,
		Burst:             20,
	}
}

// Tracker paces requests with a token bucket and holds them back while the
// backend has asked for a pause.
type Tracker struct {
	limiter *rate.Limiter
	redis   redis.Cmdable
	logger  zerolog.Logger
	now     func() time.Time

	mu          sync.Mutex
	pausedUntil time.Time
}

// NewTracker creates a new tracker.
func NewTracker(cfg Config, logger zerolog.Logger) *Tracker {
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Tracker{
		limiter: rate.NewLimiter(limit, burst),
		redis:   cfg.Redis,
		logger:  logger,
		now:     time.Now,
	}
}

// Wait blocks until a request may be sent or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	if pause := t.pauseRemaining(ctx); pause > 0 {
		rateLimitWaitsTotal.Inc()
		t.logger.Warn().Dur("wait_duration", pause).Msg("Backend requested pause - holding request")
		if err := sleep(ctx, pause); err != nil {
			return fmt.Errorf("rate limit pause: %w", err)
		}
	}

	if t.limiter.Limit() != rate.Inf && t.limiter.Tokens() < 1 {
		rateLimitWaitsTotal.Inc()
		t.logger.Debug().Msg("Throttling request")
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// Observe inspects a response and starts a pause on 429 or 503.
func (t *Tracker) Observe(ctx context.Context, status int, header http.Header) {
	if status != http.StatusTooManyRequests && status != http.StatusServiceUnavailable {
		return
	}

	now := t.now()
	pause, ok := ParseRetryAfter(header.Get("Retry-After"), now)
	if !ok {
		pause = DefaultPause
	}
	if pause > MaxPause {
		pause = MaxPause
	}
	if pause <= 0 {
		return
	}

	until := now.Add(pause)
	t.mu.Lock()
	if until.After(t.pausedUntil) {
		t.pausedUntil = until
	}
	t.mu.Unlock()

	rateLimitPausesTotal.Inc()
	t.logger.Warn().
		Int("status", status).
		Dur("pause", pause).
		Time("paused_until", until).
		Msg("Backend signalled overload - pausing requests")

	if t.redis != nil {
		err := extendPauseScript.Run(ctx, t.redis, []string{RedisKeyPausedUntil}, until.UnixMilli(), pause.Milliseconds()).Err()
		if err != nil {
			t.logger.Warn().Err(err).Msg("Failed to share pause in redis")
		}
	}
}

// State returns the current pacing state.
func (t *Tracker) State(ctx context.Context) *State {
	now := t.now()
	state := &State{
		Unlimited:   t.limiter.Limit() == rate.Inf,
		Burst:       t.limiter.Burst(),
		Tokens:      t.limiter.TokensAt(now),
		PausedUntil: now.Add(t.pauseRemaining(ctx)),
		LastUpdate:  now,
	}
	if !state.Unlimited {
		state.RequestsPerSecond = float64(t.limiter.Limit())
	}
	if !state.IsPaused(now) {
		state.PausedUntil = time.Time{}
	}
	return state
}

// pauseRemaining merges the local pause with the shared one.
func (t *Tracker) pauseRemaining(ctx context.Context) time.Duration {
	now := t.now()

	t.mu.Lock()
	until := t.pausedUntil
	t.mu.Unlock()

	if t.redis != nil {
		ms, err := t.redis.Get(ctx, RedisKeyPausedUntil).Int64()
		switch {
		case err == nil:
			if shared := time.UnixMilli(ms); shared.After(until) {
				until = shared
			}
		case !errors.Is(err, redis.Nil):
			t.logger.Debug().Err(err).Msg("Failed to read shared pause")
		}
	}

	if d := until.Sub(now); d > 0 {
		return d
	}
	return 0
}

// ParseRetryAfter parses a Retry-After value given in seconds or as an
// HTTP date.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
