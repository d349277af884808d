package resilience

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// RetryConfig holds tuning knobs for [Retry].
type RetryConfig struct {
	// Name is a human-readable label used in log messages.
	Name string

	// MaxAttempts is the total number of attempts including the first.
	// Default: 3.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry. Default: 500ms.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between retries. Default: 5s.
	MaxBackoff time.Duration

	// BackoffFactor multiplies the delay after each attempt. Default: 2.0.
	BackoffFactor float64

	// Jitter randomizes each delay by up to this fraction in either
	// direction (0.0 to 1.0). Default: 0.1.
	Jitter float64

	// RetryIf decides whether an error is worth another attempt. When nil,
	// every error is retried while the run's context is still live. An
	// attempt that trips its own per-attempt deadline therefore gets
	// retried; cancellation or expiry of the context passed to [Retry]
	// never does.
	RetryIf func(error) bool
}

func (cfg *RetryConfig) applyDefaults() {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = 2.0
	}
	if cfg.Jitter <= 0 {
		cfg.Jitter = 0.1
	}
}

// Retry runs fn until it succeeds, the attempt budget is exhausted, or ctx is
// cancelled. Delays grow exponentially with jitter between attempts. The last
// error is returned unwrapped so callers can still match sentinel errors with
// errors.Is.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	cfg.applyDefaults()

	retryIf := cfg.RetryIf
	if retryIf == nil {
		// Context errors from fn usually come from an attempt-scoped
		// deadline and deserve another try. Whether the run itself is
		// over is decided by ctx below, not by the attempt's error.
		retryIf = func(error) bool { return true }
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if cerr := ctx.Err(); cerr != nil {
			return zero, cerr
		}
		if !retryIf(err) || attempt == cfg.MaxAttempts {
			break
		}

		backoff := retryBackoff(attempt, cfg)
		slog.Warn("operation failed, retrying",
			"name", cfg.Name,
			"attempt", attempt,
			"backoff", backoff,
			"error", err)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// RetryFunc is [Retry] for operations that return only an error.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := Retry(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func retryBackoff(attempt int, cfg RetryConfig) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffFactor, float64(attempt-1))
	if cfg.Jitter > 0 {
		backoff += (rand.Float64()*2 - 1) * backoff * cfg.Jitter
	}
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	if backoff < 0 {
		backoff = float64(cfg.InitialBackoff)
	}
	return time.Duration(backoff)
}
