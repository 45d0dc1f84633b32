// Package config loads lawdesk configuration from defaults, an optional
// YAML file, an optional .env file and LAWDESK_* environment variables, in
// that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lawdesk/lawdesk-client/pkg/logging"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LAWDESK_"

// Config is the complete lawdesk configuration.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Cache     CacheConfig     `yaml:"cache"`
	Retry     RetryConfig     `yaml:"retry"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
}

type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type CacheConfig struct {
	DefaultTTL      time.Duration `yaml:"default_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	ReplayErrors    bool          `yaml:"replay_errors"`
	Redis           RedisConfig   `yaml:"redis"`
}

// RedisConfig enables the shared second cache layer and the shared rate
// limit pause when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// RetryConfig is the retry policy used by the proxy.
type RetryConfig struct {
	Count           int           `yaml:"count"`
	Delay           time.Duration `yaml:"delay"`
	Backoff         bool          `yaml:"backoff"`
	ExcludeStatuses []int         `yaml:"exclude_statuses"`
}

type RateLimitConfig struct {
	// RequestsPerSecond <= 0 disables pacing.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig seeds the session, e.g. for scripted CLI use.
type AuthConfig struct {
	Token        string `yaml:"token"`
	RefreshToken string `yaml:"refresh_token"`
	Email        string `yaml:"email"`
	Password     string `yaml:"password"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "http://localhost:5000/api",
			Timeout:   30 * time.Second,
			UserAgent: "lawdesk-client/1.0",
		},
		Cache: CacheConfig{
			DefaultTTL:      5 * time.Minute,
			CleanupInterval: time.Minute,
			Redis: RedisConfig{
				Prefix: "lawdesk:cache",
			},
		},
		Retry: RetryConfig{
			Count:           2,
			Delay:           time.Second,
			Backoff:         true,
			ExcludeStatuses: []int{400, 401, 403, 404, 422},
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Load builds the configuration. configPath and envPath are optional; a
// missing .env file is ignored, a missing config file is an error.
func Load(configPath, envPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	}

	if envPath != "" {
		// Variables already present in the environment win over the file.
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from LAWDESK_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	e := envReader{lookup: lookup}

	e.str("API_BASE_URL", &c.API.BaseURL)
	e.duration("API_TIMEOUT", &c.API.Timeout)
	e.str("API_USER_AGENT", &c.API.UserAgent)

	e.duration("CACHE_DEFAULT_TTL", &c.Cache.DefaultTTL)
	e.duration("CACHE_CLEANUP_INTERVAL", &c.Cache.CleanupInterval)
	e.boolean("CACHE_REPLAY_ERRORS", &c.Cache.ReplayErrors)
	e.str("REDIS_ADDR", &c.Cache.Redis.Addr)
	e.str("REDIS_PASSWORD", &c.Cache.Redis.Password)
	e.integer("REDIS_DB", &c.Cache.Redis.DB)
	e.str("REDIS_PREFIX", &c.Cache.Redis.Prefix)

	e.integer("RETRY_COUNT", &c.Retry.Count)
	e.duration("RETRY_DELAY", &c.Retry.Delay)
	e.boolean("RETRY_BACKOFF", &c.Retry.Backoff)
	e.intList("RETRY_EXCLUDE_STATUSES", &c.Retry.ExcludeStatuses)

	e.float("RATE_LIMIT_RPS", &c.RateLimit.RequestsPerSecond)
	e.integer("RATE_LIMIT_BURST", &c.RateLimit.Burst)

	e.str("LOG_LEVEL", &c.Log.Level)
	e.boolean("LOG_PRETTY", &c.Log.Pretty)

	e.str("SERVER_ADDR", &c.Server.Addr)
	e.duration("SERVER_READ_TIMEOUT", &c.Server.ReadTimeout)
	e.duration("SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeout)
	e.duration("SERVER_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)

	e.str("AUTH_TOKEN", &c.Auth.Token)
	e.str("AUTH_REFRESH_TOKEN", &c.Auth.RefreshToken)
	e.str("AUTH_EMAIL", &c.Auth.Email)
	e.str("AUTH_PASSWORD", &c.Auth.Password)

	return errors.Join(e.errs...)
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL (got %q)", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must be >= 0 (got %v)", c.API.Timeout)
	}
	if c.Cache.DefaultTTL < 0 {
		return fmt.Errorf("cache.default_ttl must be >= 0 (got %v)", c.Cache.DefaultTTL)
	}
	if c.Cache.CleanupInterval < 0 {
		return fmt.Errorf("cache.cleanup_interval must be >= 0 (got %v)", c.Cache.CleanupInterval)
	}
	if c.Cache.Redis.DB < 0 {
		return fmt.Errorf("cache.redis.db must be >= 0 (got %d)", c.Cache.Redis.DB)
	}
	if c.Retry.Count < 0 {
		return fmt.Errorf("retry.count must be >= 0 (got %d)", c.Retry.Count)
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("retry.delay must be >= 0 (got %v)", c.Retry.Delay)
	}
	for _, status := range c.Retry.ExcludeStatuses {
		if status < 100 || status > 599 {
			return fmt.Errorf("retry.exclude_statuses contains invalid status %d", status)
		}
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate_limit.burst must be >= 1 when requests_per_second > 0 (got %d)", c.RateLimit.Burst)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// envReader collects parse errors while reading variables.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(name string) (string, bool) {
	v, ok := e.lookup(EnvPrefix + name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) fail(name string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
}

func (e *envReader) str(name string, dst *string) {
	if v, ok := e.get(name); ok {
		*dst = v
	}
}

func (e *envReader) duration(name string, dst *time.Duration) {
	v, ok := e.get(name)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(name, err)
		return
	}
	*dst = d
}

func (e *envReader) integer(name string, dst *int) {
	v, ok := e.get(name)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(name, err)
		return
	}
	*dst = n
}

func (e *envReader) float(name string, dst *float64) {
	v, ok := e.get(name)
	if !ok || v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(name, err)
		return
	}
	*dst = f
}

func (e *envReader) boolean(name string, dst *bool) {
	v, ok := e.get(name)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(name, err)
		return
	}
	*dst = b
}

// intList parses a comma-separated list. An empty value clears the list.
func (e *envReader) intList(name string, dst *[]int) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	out := []int{}
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			e.fail(name, err)
			return
		}
		out = append(out, n)
	}
	*dst = out
}
