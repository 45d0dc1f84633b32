package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Cleaner is anything with an expiry sweep, such as *Manager[V].
type Cleaner interface {
	Cleanup() int
}

// Janitor calls Cleanup on a fixed interval until its context is done.
type Janitor struct {
	cleaner  Cleaner
	interval time.Duration
	logger   zerolog.Logger
}

// NewJanitor creates a janitor. A non-positive interval defaults to one minute.
func NewJanitor(cleaner Cleaner, interval time.Duration, logger zerolog.Logger) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{
		cleaner:  cleaner,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Debug().Dur("interval", j.interval).Msg("Cache janitor started")

	for {
		select {
		case <-ctx.Done():
			j.logger.Debug().Msg("Cache janitor stopped")
			return
		case <-ticker.C:
			if removed := j.cleaner.Cleanup(); removed > 0 {
				j.logger.Debug().Int("removed", removed).Msg("Expired cache entries swept")
			}
		}
	}
}
