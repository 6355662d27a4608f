package matrix

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMaxRetries is the bounded retry count: 3 retries, 4 total attempts.
const DefaultMaxRetries = 3

// DefaultBaseDelay seeds the exponential backoff when the server provides no
// wait hint.
const DefaultBaseDelay = 500 * time.Millisecond

// RetryPolicy bounds the Executor's retry behaviour. Zero values fall back
// to the defaults.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is the first backoff delay; it doubles per attempt. A
	// server-provided wait hint always takes precedence.
	BaseDelay time.Duration
}

func (p RetryPolicy) maxRetries() int {
	if p.MaxRetries <= 0 {
		return DefaultMaxRetries
	}
	return p.MaxRetries
}

func (p RetryPolicy) baseDelay() time.Duration {
	if p.BaseDelay <= 0 {
		return DefaultBaseDelay
	}
	return p.BaseDelay
}

// Executor performs a remote operation with bounded retry. Only rate-limit
// signals from the homeserver are retried; every other failure propagates
// immediately. This is the single place backoff logic lives; components
// call through it instead of looping themselves.
//
// The executor does not make operations idempotent. Mutating sends carry a
// transaction ID as their idempotency token; invite and kick are idempotent
// on the homeserver side.
type Executor struct {
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
	log    zerolog.Logger
}

// NewExecutor returns an Executor with the given policy.
func NewExecutor(policy RetryPolicy, log zerolog.Logger) *Executor {
	return &Executor{
		policy: policy,
		sleep:  sleepContext,
		log:    log,
	}
}

// Do runs op, retrying on rate-limit errors up to the policy's bound. The
// delay before each retry honors the server's retry_after_ms hint exactly
// when present, and otherwise doubles from the base delay. After exhaustion
// the last error propagates.
func (e *Executor) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	maxRetries := e.policy.maxRetries()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := e.policy.baseDelay() << (attempt - 1)
			if hint, ok := RetryAfter(lastErr); ok {
				delay = hint
			}
			e.log.Warn().
				Str("operation", name).
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Msg("rate limited by homeserver, backing off")
			if err := e.sleep(ctx, delay); err != nil {
				return err
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRateLimited(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
