package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lawdesk/lawdesk-client/internal/config"
	"github.com/lawdesk/lawdesk-client/pkg/auth"
	"github.com/lawdesk/lawdesk-client/pkg/cache"
	"github.com/lawdesk/lawdesk-client/pkg/client"
	"github.com/lawdesk/lawdesk-client/pkg/legal"
	"github.com/lawdesk/lawdesk-client/pkg/logging"
	"github.com/lawdesk/lawdesk-client/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// app wires the client stack from configuration.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	redis    *redis.Client
	limiter  *ratelimit.Tracker
	api      *client.Client
	auth     *auth.Service
	services *legal.Services
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: logging.NewLogger("lawdesk"),
	}

	var store cache.Store
	limiterCfg := ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}

	if cfg.Cache.Redis.Enabled() {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.redis.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Cache.Redis.Addr, err)
		}
		a.logger.Info().Str("addr", cfg.Cache.Redis.Addr).Msg("Connected to Redis")

		store = cache.NewRedisStore(a.redis, cfg.Cache.Redis.Prefix)
		limiterCfg.Redis = a.redis
	}

	a.limiter = ratelimit.NewTracker(limiterCfg, logging.NewLogger(logging.ComponentRateLimit))

	clientCfg := client.DefaultConfig(cfg.API.BaseURL)
	clientCfg.UserAgent = cfg.API.UserAgent
	clientCfg.Timeout = cfg.API.Timeout
	clientCfg.CacheTTL = cfg.Cache.DefaultTTL
	clientCfg.ReplayCachedErrors = cfg.Cache.ReplayErrors
	clientCfg.Store = store
	clientCfg.RateLimiter = a.limiter

	api, err := client.New(clientCfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.api = api

	session := auth.NewSession(cfg.Auth.Token, cfg.Auth.RefreshToken)
	a.auth = auth.NewService(api, session, logging.NewLogger(logging.ComponentAuth))
	a.services = legal.New(api.WithTokenSource(a.auth))

	return a, nil
}

// retryConfig converts the configured retry policy.
func (a *app) retryConfig() *client.RetryConfig {
	exclude := a.cfg.Retry.ExcludeStatuses
	if exclude == nil {
		exclude = []int{}
	}
	return &client.RetryConfig{
		Count:           client.Int(a.cfg.Retry.Count),
		Delay:           client.Duration(a.cfg.Retry.Delay),
		Backoff:         client.Bool(a.cfg.Retry.Backoff),
		ExcludeStatuses: exclude,
	}
}

// ensureSession signs in with configured credentials when no token is
// available.
func (a *app) ensureSession(ctx context.Context) error {
	if _, err := a.auth.Token(ctx); err == nil {
		return nil
	}
	if a.cfg.Auth.Email == "" {
		return fmt.Errorf("%w: set LAWDESK_AUTH_TOKEN or LAWDESK_AUTH_EMAIL and LAWDESK_AUTH_PASSWORD", auth.ErrNotAuthenticated)
	}
	_, err := a.auth.Login(ctx, auth.LoginRequest{
		Email:    a.cfg.Auth.Email,
		Password: a.cfg.Auth.Password,
	})
	return err
}

// ping checks the optional Redis dependency.
func (a *app) ping(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Ping(ctx).Err()
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			a.logger.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
}
