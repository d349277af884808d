package resilience

import (
	"errors"
	"testing"
	"time"
)

// ttsBreaker builds a breaker tuned the way tests need it, guarding an
// imaginary synthesis endpoint.
func ttsBreaker(maxFailures int, reset time.Duration, halfOpenMax int) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "http://xtts-primary:8020",
		MaxFailures:  maxFailures,
		ResetTimeout: reset,
		HalfOpenMax:  halfOpenMax,
	})
}

// trip drives n consecutive failures through cb.
func trip(cb *CircuitBreaker, n int) {
	for range n {
		_ = cb.Execute(func() error { return errBackendDown })
	}
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "xtts"})
	if cb.cfg.MaxFailures != 5 {
		t.Errorf("MaxFailures = %d, want 5", cb.cfg.MaxFailures)
	}
	if cb.cfg.ResetTimeout != 30*time.Second {
		t.Errorf("ResetTimeout = %v, want 30s", cb.cfg.ResetTimeout)
	}
	if cb.cfg.HalfOpenMax != 3 {
		t.Errorf("HalfOpenMax = %d, want 3", cb.cfg.HalfOpenMax)
	}
	if cb.State() != StateClosed {
		t.Errorf("new breaker state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_ClosedForwardsCall(t *testing.T) {
	cb := ttsBreaker(3, time.Hour, 2)

	synthesized := false
	if err := cb.Execute(func() error { synthesized = true; return nil }); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !synthesized {
		t.Fatal("closed breaker did not forward the call")
	}
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := ttsBreaker(3, time.Hour, 2)

	trip(cb, 3)
	if cb.State() != StateOpen {
		t.Fatalf("state after 3 failures = %v, want open", cb.State())
	}

	// The backend must not be touched while open.
	asked := false
	err := cb.Execute(func() error { asked = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Execute() error = %v, want ErrCircuitOpen", err)
	}
	if asked {
		t.Fatal("open breaker forwarded a call to the backend")
	}
}

func TestCircuitBreaker_SuccessClearsFailureStreak(t *testing.T) {
	cb := ttsBreaker(3, time.Hour, 2)

	trip(cb, 2)
	_ = cb.Execute(func() error { return nil })

	// The streak restarted, so two more failures must not open it.
	trip(cb, 2)
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed after streak reset", cb.State())
	}
}

func TestCircuitBreaker_ResetTimeoutAdmitsProbes(t *testing.T) {
	cb := ttsBreaker(2, 10*time.Millisecond, 2)

	trip(cb, 2)
	if cb.State() != StateOpen {
		t.Fatal("breaker did not open")
	}

	time.Sleep(15 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("state after reset timeout = %v, want half-open", cb.State())
	}
}

func TestCircuitBreaker_RecoversAfterSuccessfulProbes(t *testing.T) {
	cb := ttsBreaker(2, 10*time.Millisecond, 2)

	trip(cb, 2)
	time.Sleep(15 * time.Millisecond)

	for i := range 2 {
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("probe %d: Execute() error = %v", i, err)
		}
	}
	if cb.State() != StateClosed {
		t.Fatalf("state after successful probes = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb := ttsBreaker(2, 10*time.Millisecond, 3)

	trip(cb, 2)
	time.Sleep(15 * time.Millisecond)

	if err := cb.Execute(func() error { return errBackendDown }); !errors.Is(err, errBackendDown) {
		t.Fatalf("probe error = %v, want errBackendDown", err)
	}

	// lastFailure was just stamped, so the stored state must be open again.
	cb.mu.Lock()
	s := cb.state
	cb.mu.Unlock()
	if s != StateOpen {
		t.Fatalf("state after failed probe = %v, want open", s)
	}
}

func TestCircuitBreaker_PartialProbeStreakStaysHalfOpen(t *testing.T) {
	cb := ttsBreaker(2, 10*time.Millisecond, 2)

	trip(cb, 2)
	time.Sleep(15 * time.Millisecond)

	// One success out of a two-probe budget is not enough to close.
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe Execute() error = %v", err)
	}
	cb.mu.Lock()
	s := cb.state
	cb.mu.Unlock()
	if s != StateHalfOpen {
		t.Fatalf("state after one probe = %v, want half-open", s)
	}
}

func TestCircuitBreaker_ManualReset(t *testing.T) {
	cb := ttsBreaker(2, time.Hour, 2)

	trip(cb, 2)
	if cb.State() != StateOpen {
		t.Fatal("breaker did not open")
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Fatalf("state after Reset() = %v, want closed", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("Execute() after Reset() error = %v", err)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
