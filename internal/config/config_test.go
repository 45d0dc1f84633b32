package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Minute, cfg.Cache.DefaultTTL)
	assert.Equal(t, 2, cfg.Retry.Count)
	assert.Equal(t, []int{400, 401, 403, 404, 422}, cfg.Retry.ExcludeStatuses)
	assert.False(t, cfg.Cache.Redis.Enabled())
}

func TestLoad_NoSources(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "lawdesk.yaml", `
api:
  base_url: https://firm.example/api
  timeout: 10s
cache:
  default_ttl: 90s
  redis:
    addr: redis:6379
    db: 2
retry:
  count: 3
  exclude_statuses: [404]
rate_limit:
  requests_per_second: 2.5
  burst: 5
log:
  level: debug
  pretty: true
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "https://firm.example/api", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, "lawdesk-client/1.0", cfg.API.UserAgent, "unset fields keep defaults")
	assert.Equal(t, 90*time.Second, cfg.Cache.DefaultTTL)
	assert.True(t, cfg.Cache.Redis.Enabled())
	assert.Equal(t, 2, cfg.Cache.Redis.DB)
	assert.Equal(t, "lawdesk:cache", cfg.Cache.Redis.Prefix)
	assert.Equal(t, 3, cfg.Retry.Count)
	assert.Equal(t, []int{404}, cfg.Retry.ExcludeStatuses)
	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "api: [unclosed")
	_, err := Load(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing YAML config")
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "lawdesk.yaml", "api:\n  base_url: https://yaml.example/api\n")
	t.Setenv("LAWDESK_API_BASE_URL", "https://env.example/api")
	t.Setenv("LAWDESK_RETRY_EXCLUDE_STATUSES", "401, 403")
	t.Setenv("LAWDESK_RATE_LIMIT_RPS", "0")
	t.Setenv("LAWDESK_CACHE_REPLAY_ERRORS", "true")

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "https://env.example/api", cfg.API.BaseURL)
	assert.Equal(t, []int{401, 403}, cfg.Retry.ExcludeStatuses)
	assert.Equal(t, 0.0, cfg.RateLimit.RequestsPerSecond)
	assert.True(t, cfg.Cache.ReplayErrors)
}

func TestLoad_EnvFile(t *testing.T) {
	envPath := writeFile(t, ".env", "LAWDESK_AUTH_TOKEN=from-dotenv\nLAWDESK_SERVER_ADDR=:9090\n")
	t.Setenv("LAWDESK_SERVER_ADDR", ":7070")
	// Registered with t.Setenv so the value loaded from the file is
	// restored after the test.
	t.Setenv("LAWDESK_AUTH_TOKEN", "")
	os.Unsetenv("LAWDESK_AUTH_TOKEN")

	cfg, err := Load("", envPath)
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.Auth.Token)
	assert.Equal(t, ":7070", cfg.Server.Addr, "process env wins over .env")
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), ".env"))
	assert.NoError(t, err)
}

func TestLoad_InvalidEnvValues(t *testing.T) {
	t.Setenv("LAWDESK_API_TIMEOUT", "soon")
	t.Setenv("LAWDESK_REDIS_DB", "two")

	_, err := Load("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LAWDESK_API_TIMEOUT")
	assert.Contains(t, err.Error(), "LAWDESK_REDIS_DB")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty base url", func(c *Config) { c.API.BaseURL = "" }, "api.base_url is required"},
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api" }, "absolute http(s) URL"},
		{"ftp base url", func(c *Config) { c.API.BaseURL = "ftp://host/api" }, "absolute http(s) URL"},
		{"negative timeout", func(c *Config) { c.API.Timeout = -time.Second }, "api.timeout"},
		{"negative ttl", func(c *Config) { c.Cache.DefaultTTL = -time.Minute }, "cache.default_ttl"},
		{"negative cleanup", func(c *Config) { c.Cache.CleanupInterval = -1 }, "cache.cleanup_interval"},
		{"negative retry count", func(c *Config) { c.Retry.Count = -1 }, "retry.count"},
		{"bad exclude status", func(c *Config) { c.Retry.ExcludeStatuses = []int{42} }, "invalid status 42"},
		{"zero burst", func(c *Config) { c.RateLimit.Burst = 0 }, "rate_limit.burst"},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"empty server addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"zero burst without pacing", func(c *Config) { c.RateLimit = RateLimitConfig{} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q should contain %q", err, tt.wantErr)
		})
	}
}
