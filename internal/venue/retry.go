package venue

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Sleeper abstracts the backoff wait so retry behavior can be tested
// with a fake clock.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// realSleeper waits on the wall clock, honoring context cancellation.
type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// NewRealSleeper returns a Sleeper backed by the wall clock.
func NewRealSleeper() Sleeper {
	return realSleeper{}
}

// RetryPolicy bounds how often and how fast venue calls are retried.
// It is injected into the execution coordinator so schedules can be
// tuned per deployment and tested without real waits.
type RetryPolicy struct {
	MaxRetries    int           `json:"max_retries"`
	InitialDelay  time.Duration `json:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor"`
	JitterEnabled bool          `json:"jitter_enabled"`

	// CallTimeout bounds each individual venue call.
	CallTimeout time.Duration `json:"call_timeout"`
}

// DefaultRetryPolicy mirrors the production defaults: three retries
// with exponential backoff and jitter, five-second call timeout.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      time.Minute,
		BackoffFactor: 2.0,
		JitterEnabled: true,
		CallTimeout:   5 * time.Second,
	}
}

// Delay computes the backoff before retry attempt number attempt
// (1-based), capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.InitialDelay
	if attempt > 1 {
		delay = time.Duration(float64(p.InitialDelay) * math.Pow(p.BackoffFactor, float64(attempt-1)))
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.JitterEnabled && delay > 0 {
		jitter := time.Duration(float64(delay) * 0.1 * (2*rand.Float64() - 1))
		delay += jitter
	}
	return delay
}
