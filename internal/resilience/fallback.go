package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllBackendsFailed is returned when every backend in a [FallbackGroup]
// either failed or was skipped because its circuit breaker is open.
var ErrAllBackendsFailed = errors.New("all backends failed")

// FallbackConfig configures the circuit breaker each backend in a
// [FallbackGroup] gets.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// backend pairs one provider instance with its dedicated breaker. Breakers
// are per-backend so a misbehaving primary cannot poison its understudies.
type backend[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup chains a primary provider with zero or more understudies of
// the same type. Calls go to the primary first; when it fails or its breaker
// is open, the next backend is tried in registration order. The typed
// wrappers [LLMFallback] and [TTSFallback] build on this for script
// generation and speech synthesis.
//
// Safe for concurrent use once assembled; AddBackend is not safe to call
// concurrently with Execute.
type FallbackGroup[T any] struct {
	backends []backend[T]
	cfg      FallbackConfig
}

// NewFallbackGroup creates a group with primary as its first backend.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	g := &FallbackGroup[T]{cfg: cfg}
	g.AddBackend(primaryName, primary)
	return g
}

// AddBackend appends a fallback. Backends are tried in the order added,
// after the primary.
func (g *FallbackGroup[T]) AddBackend(name string, value T) {
	cbCfg := g.cfg.CircuitBreaker
	cbCfg.Name = name
	g.backends = append(g.backends, backend[T]{
		name:    name,
		value:   value,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Execute runs fn against each backend until one succeeds. Backends with an
// open breaker are skipped without an attempt. When every backend fails, the
// returned error wraps [ErrAllBackendsFailed] together with the last failure.
func (g *FallbackGroup[T]) Execute(fn func(T) error) error {
	_, err := ExecuteWithResult(g, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult is [FallbackGroup.Execute] for calls that produce a
// value. Package-level because methods cannot introduce type parameters.
func ExecuteWithResult[T any, R any](g *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		zero    R
		lastErr error
	)
	for i := range g.backends {
		b := &g.backends[i]

		var result R
		err := b.breaker.Execute(func() error {
			var callErr error
			result, callErr = fn(b.value)
			return callErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err

		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping backend, circuit open", "backend", b.name)
		} else {
			slog.Warn("backend failed, trying next", "backend", b.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllBackendsFailed, lastErr)
}
