package source

import (
	"context"
	"time"

	"github.com/wonny/trendscore/internal/contracts"
	"github.com/wonny/trendscore/pkg/logger"
)

// Retrying retries transient source failures with exponential backoff
type Retrying struct {
	next     contracts.RawStatSource
	attempts int
	delay    time.Duration
	maxDelay time.Duration
	logger   *logger.Logger
}

// NewRetrying wraps next. retries is the number of extra attempts after the first.
func NewRetrying(next contracts.RawStatSource, retries int, delay time.Duration, log *logger.Logger) *Retrying {
	if retries < 0 {
		retries = 0
	}
	return &Retrying{
		next:     next,
		attempts: retries + 1,
		delay:    delay,
		maxDelay: 30 * time.Second,
		logger:   log.WithField("module", "source"),
	}
}

// FetchRawStats returns the last error once attempts are exhausted
func (r *Retrying) FetchRawStats(ctx context.Context, category contracts.Category, date time.Time) ([]contracts.RawStat, error) {
	delay := r.delay
	var err error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		var raws []contracts.RawStat
		raws, err = r.next.FetchRawStats(ctx, category, date)
		if err == nil {
			return raws, nil
		}
		if !contracts.IsRetryable(err) || attempt == r.attempts {
			break
		}

		r.logger.WithCategory(category.String()).WithDate(date).WithFields(map[string]interface{}{
			"attempt": attempt,
			"delay":   delay,
		}).WithError(err).Warn("Raw source unavailable, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		// Exponential backoff
		delay *= 2
		if delay > r.maxDelay {
			delay = r.maxDelay
		}
	}

	return nil, err
}
