package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		value  string
		want   time.Duration
		wantOK bool
	}{
		{name: "empty", value: "", want: 0, wantOK: false},
		{name: "seconds", value: "7", want: 7 * time.Second, wantOK: true},
		{name: "seconds with spaces", value: " 2 ", want: 2 * time.Second, wantOK: true},
		{name: "negative seconds", value: "-1", want: 0, wantOK: false},
		{name: "http date", value: now.Add(30 * time.Second).Format(http.TimeFormat), want: 30 * time.Second, wantOK: true},
		{name: "http date in the past", value: now.Add(-time.Minute).Format(http.TimeFormat), want: 0, wantOK: true},
		{name: "garbage", value: "soon", want: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRetryAfter(tt.value, now)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ParseRetryAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewTracker_Defaults(t *testing.T) {
	tracker := NewTracker(Config{}, zerolog.Nop())
	state := tracker.State(context.Background())

	if !state.Unlimited {
		t.Error("zero rate should be unlimited")
	}
	if state.Burst != 1 {
		t.Errorf("Burst = %d, want 1", state.Burst)
	}
	if state.RequestsPerSecond != 0 {
		t.Errorf("RequestsPerSecond = %v, want 0", state.RequestsPerSecond)
	}
}

func TestObserve(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		status     int
		retryAfter string
		wantPause  time.Duration
	}{
		{name: "success ignored", status: http.StatusOK, retryAfter: "10", wantPause: 0},
		{name: "server error ignored", status: http.StatusInternalServerError, retryAfter: "10", wantPause: 0},
		{name: "429 with retry-after", status: http.StatusTooManyRequests, retryAfter: "3", wantPause: 3 * time.Second},
		{name: "503 without retry-after", status: http.StatusServiceUnavailable, retryAfter: "", wantPause: DefaultPause},
		{name: "pause capped", status: http.StatusTooManyRequests, retryAfter: "3600", wantPause: MaxPause},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker(DefaultConfig(), zerolog.Nop())
			tracker.now = func() time.Time { return now }

			header := http.Header{}
			if tt.retryAfter != "" {
				header.Set("Retry-After", tt.retryAfter)
			}
			tracker.Observe(context.Background(), tt.status, header)

			state := tracker.State(context.Background())
			if got := state.TimeUntilResume(now); got != tt.wantPause {
				t.Errorf("pause = %v, want %v", got, tt.wantPause)
			}
		})
	}
}

func TestObserve_KeepsLongerPause(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	tracker := NewTracker(DefaultConfig(), zerolog.Nop())
	tracker.now = func() time.Time { return now }

	long := http.Header{"Retry-After": []string{"30"}}
	short := http.Header{"Retry-After": []string{"1"}}

	tracker.Observe(context.Background(), http.StatusTooManyRequests, long)
	tracker.Observe(context.Background(), http.StatusTooManyRequests, short)

	if got := tracker.State(context.Background()).TimeUntilResume(now); got != 30*time.Second {
		t.Errorf("pause = %v, want 30s", got)
	}
}

func TestWait_HonoursPause(t *testing.T) {
	tracker := NewTracker(Config{}, zerolog.Nop())
	tracker.pausedUntil = time.Now().Add(50 * time.Millisecond)

	start := time.Now()
	if err := tracker.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Wait() returned after %v, expected to honour the pause", elapsed)
	}
}

func TestWait_ContextCancelledDuringPause(t *testing.T) {
	tracker := NewTracker(Config{}, zerolog.Nop())
	tracker.pausedUntil = time.Now().Add(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tracker.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestWait_Paces(t *testing.T) {
	tracker := NewTracker(Config{RequestsPerSecond: 20, Burst: 1}, zerolog.Nop())
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := tracker.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	// First request uses the burst, the next two wait ~50ms each.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("3 requests at 20 rps took %v, expected pacing", elapsed)
	}
}

func TestWait_FailsFastWhenDeadlineTooShort(t *testing.T) {
	tracker := NewTracker(Config{RequestsPerSecond: 1, Burst: 1}, zerolog.Nop())
	if err := tracker.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := tracker.Wait(ctx); err == nil {
		t.Fatal("Wait() should fail when the next token arrives after the deadline")
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Wait() took %v, expected to fail without waiting", elapsed)
	}
}

func TestWait_Unlimited(t *testing.T) {
	tracker := NewTracker(Config{}, zerolog.Nop())
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := tracker.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("unlimited tracker took %v for 100 requests", elapsed)
	}
}
