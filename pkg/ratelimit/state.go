// Package ratelimit paces outbound backend requests and honours the
// server's back-pressure signals (429/503 with Retry-After).
package ratelimit

import (
	"time"
)

// Redis key for the pause shared between client instances.
const RedisKeyPausedUntil = "lawdesk:rate_limit:paused_until"

const (
	// DefaultPause applies to a 429 or 503 without a usable Retry-After.
	DefaultPause = 5 * time.Second

	// MaxPause caps any server requested pause.
	MaxPause = 2 * time.Minute
)

// State is a snapshot of the tracker.
type State struct {
	// Unlimited is true when no request rate is configured.
	Unlimited bool `json:"unlimited"`

	// RequestsPerSecond is the configured steady rate (0 when unlimited).
	RequestsPerSecond float64 `json:"requests_per_second"`

	// Burst is the number of requests allowed at once.
	Burst int `json:"burst"`

	// Tokens currently available in the bucket.
	Tokens float64 `json:"tokens"`

	// PausedUntil is set after the server asked us to back off.
	PausedUntil time.Time `json:"paused_until"`

	// LastUpdate is when the snapshot was taken.
	LastUpdate time.Time `json:"last_update"`
}

// IsPaused reports whether requests are held back at now.
func (s *State) IsPaused(now time.Time) bool {
	return now.Before(s.PausedUntil)
}

// TimeUntilResume returns how long requests stay paused.
// Returns 0 if not paused.
func (s *State) TimeUntilResume(now time.Time) time.Duration {
	d := s.PausedUntil.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
