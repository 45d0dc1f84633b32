//go:build integration

package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		redisContainer.Terminate(ctx)
	})
	return client
}

func TestIntegration_SharedPause(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	first := NewTracker(Config{Redis: client}, zerolog.Nop())
	second := NewTracker(Config{Redis: client}, zerolog.Nop())

	first.Observe(ctx, http.StatusTooManyRequests, http.Header{"Retry-After": []string{"2"}})

	state := second.State(ctx)
	if !state.IsPaused(time.Now()) {
		t.Fatal("second tracker should see the pause shared through redis")
	}

	ttl, err := client.TTL(ctx, RedisKeyPausedUntil).Result()
	if err != nil {
		t.Fatal(err)
	}
	if ttl <= 0 || ttl > 2*time.Second {
		t.Errorf("shared pause TTL = %v, want (0, 2s]", ttl)
	}
}

func TestIntegration_SharedPauseExpires(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	first := NewTracker(Config{Redis: client}, zerolog.Nop())
	second := NewTracker(Config{Redis: client}, zerolog.Nop())

	first.Observe(ctx, http.StatusServiceUnavailable, http.Header{"Retry-After": []string{"1"}})

	start := time.Now()
	if err := second.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 500*time.Millisecond {
		t.Errorf("second tracker did not wait for the shared pause (%v)", elapsed)
	}
}

func TestIntegration_SharedPauseKeepsLongest(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	first := NewTracker(Config{Redis: client}, zerolog.Nop())
	second := NewTracker(Config{Redis: client}, zerolog.Nop())

	first.Observe(ctx, http.StatusTooManyRequests, http.Header{"Retry-After": []string{"30"}})
	longest, err := client.Get(ctx, RedisKeyPausedUntil).Int64()
	if err != nil {
		t.Fatal(err)
	}

	second.Observe(ctx, http.StatusTooManyRequests, http.Header{"Retry-After": []string{"1"}})

	got, err := client.Get(ctx, RedisKeyPausedUntil).Int64()
	if err != nil {
		t.Fatal(err)
	}
	if got != longest {
		t.Errorf("shared pause = %d, want the longer pause %d", got, longest)
	}

	ttl, err := client.TTL(ctx, RedisKeyPausedUntil).Result()
	if err != nil {
		t.Fatal(err)
	}
	if ttl < 25*time.Second {
		t.Errorf("shared pause TTL = %v, want ~30s", ttl)
	}
}
