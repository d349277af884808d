package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/unipodhq/unipod/pkg/provider/tts"
	ttsmock "github.com/unipodhq/unipod/pkg/provider/tts/mock"
)

func TestTTSFallback_Synthesize_PrimarySuccess(t *testing.T) {
	primary := &ttsmock.Provider{SynthesizeResult: []byte("primary-audio")}
	secondary := &ttsmock.Provider{SynthesizeResult: []byte("fallback-audio")}

	fb := NewTTSFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	wav, err := fb.Synthesize(context.Background(), "hello", tts.VoiceProfile{ID: "v1", Name: "TestVoice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(wav) != "primary-audio" {
		t.Fatalf("audio = %q, want primary-audio", wav)
	}
	if len(primary.SynthesizeCalls) != 1 {
		t.Fatalf("primary called %d times, want 1", len(primary.SynthesizeCalls))
	}
	if len(secondary.SynthesizeCalls) != 0 {
		t.Fatalf("secondary called %d times, want 0", len(secondary.SynthesizeCalls))
	}
}

func TestTTSFallback_Synthesize_Failover(t *testing.T) {
	primary := &ttsmock.Provider{SynthesizeErr: errors.New("primary down")}
	secondary := &ttsmock.Provider{SynthesizeResult: []byte("fallback-audio")}

	fb := NewTTSFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	wav, err := fb.Synthesize(context.Background(), "hello", tts.VoiceProfile{ID: "v1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(wav) != "fallback-audio" {
		t.Fatalf("audio = %q, want fallback-audio", wav)
	}
}

func TestTTSFallback_Synthesize_AllFail(t *testing.T) {
	primary := &ttsmock.Provider{SynthesizeErr: errors.New("primary down")}
	secondary := &ttsmock.Provider{SynthesizeErr: errors.New("secondary down")}

	fb := NewTTSFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	if _, err := fb.Synthesize(context.Background(), "hello", tts.VoiceProfile{ID: "v1"}); !errors.Is(err, ErrAllBackendsFailed) {
		t.Fatalf("err = %v, want ErrAllBackendsFailed", err)
	}
}

func TestTTSFallback_CloneVoice_Failover(t *testing.T) {
	primary := &ttsmock.Provider{CloneVoiceErr: errors.New("primary down")}
	secondary := &ttsmock.Provider{
		CloneVoiceResult: &tts.VoiceProfile{ID: "cloned", Name: "Cloned"},
	}

	fb := NewTTSFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	profile, err := fb.CloneVoice(context.Background(), [][]byte{[]byte("sample")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.ID != "cloned" {
		t.Fatalf("profile.ID = %q, want cloned", profile.ID)
	}
}
