// Package mock provides a test double for the tts.Provider interface.
//
// Use Provider to feed controlled WAV payloads to consumers and to verify
// that the correct text and VoiceProfile are passed to the TTS backend.
//
// Example:
//
//	p := &mock.Provider{
//	    SynthesizeResults: [][]byte{wav1, wav2},
//	}
//	audio, _ := p.Synthesize(ctx, "hello", voice)
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/unipodhq/unipod/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Text is the utterance text passed to Synthesize.
	Text string
	// Voice is the VoiceProfile passed to Synthesize.
	Voice tts.VoiceProfile
}

// CloneVoiceCall records a single invocation of CloneVoice.
type CloneVoiceCall struct {
	// Samples is a copy of the audio samples passed to CloneVoice.
	Samples [][]byte
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// SynthesizeResults is the sequence of WAV payloads returned by successive
	// Synthesize calls. When exhausted, SynthesizeResult (or a small default
	// payload) is returned instead.
	SynthesizeResults [][]byte

	// SynthesizeResult is the payload returned once SynthesizeResults is
	// exhausted. May be nil.
	SynthesizeResult []byte

	// SynthesizeErr, if non-nil, is returned by every Synthesize call.
	SynthesizeErr error

	// SynthesizeErrAfter, when > 0, makes Synthesize fail with SynthesizeErr
	// only from the Nth call onward (1-based). Used to exercise mid-run
	// synthesis failures.
	SynthesizeErrAfter int

	// CloneVoiceResult is returned by CloneVoice. May be nil.
	CloneVoiceResult *tts.VoiceProfile

	// CloneVoiceErr, if non-nil, is returned by CloneVoice.
	CloneVoiceErr error

	// SynthesizeCalls records every Synthesize invocation in order.
	SynthesizeCalls []SynthesizeCall

	// CloneVoiceCalls records every CloneVoice invocation in order.
	CloneVoiceCalls []CloneVoiceCall
}

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(_ context.Context, text string, voice tts.VoiceProfile) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Text: text, Voice: voice})
	n := len(p.SynthesizeCalls)

	if p.SynthesizeErr != nil && (p.SynthesizeErrAfter <= 0 || n >= p.SynthesizeErrAfter) {
		return nil, p.SynthesizeErr
	}
	if n <= len(p.SynthesizeResults) {
		return p.SynthesizeResults[n-1], nil
	}
	if p.SynthesizeResult != nil {
		return p.SynthesizeResult, nil
	}
	return []byte("RIFF"), nil
}

// CloneVoice implements tts.Provider.
func (p *Provider) CloneVoice(_ context.Context, samples [][]byte) (*tts.VoiceProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cp := make([][]byte, len(samples))
	for i, s := range samples {
		cp[i] = append([]byte(nil), s...)
	}
	p.CloneVoiceCalls = append(p.CloneVoiceCalls, CloneVoiceCall{Samples: cp})

	if p.CloneVoiceErr != nil {
		return nil, p.CloneVoiceErr
	}
	if p.CloneVoiceResult == nil {
		return nil, errors.New("mock: no CloneVoiceResult configured")
	}
	return p.CloneVoiceResult, nil
}
