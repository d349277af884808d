// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., a local Coqui XTTS v2
// server) and presents a uniform batch interface: one call per utterance,
// returning a complete WAV file. The podcast pipeline synthesises dialogue
// lines strictly in script order, so a batch interface keeps the ordering
// contract trivial; callers that parallelise must reassemble results by their
// original sequence index.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Provider is the abstraction over any TTS backend.
//
// Implementations must be safe for concurrent use. Multiple Synthesize calls
// may run in parallel (e.g., one per dialogue line when the pipeline is
// configured with more than one synthesis worker).
type Provider interface {
	// Synthesize renders text as speech conditioned on the given voice profile
	// and returns a complete WAV-encoded audio file.
	//
	// Returns an error if text is empty, if the voice's reference sample is
	// missing or unreadable, or if the synthesis backend fails. Implementations
	// must propagate ctx cancellation promptly.
	Synthesize(ctx context.Context, text string, voice VoiceProfile) ([]byte, error)

	// CloneVoice creates a new voice profile by uploading reference audio
	// samples to the backend. Each element of samples must be a WAV-encoded
	// audio file.
	//
	// This is an expensive operation and should not be called in the synthesis
	// hot path. A nil or empty samples slice returns an error rather than
	// sending an empty request.
	CloneVoice(ctx context.Context, samples [][]byte) (*VoiceProfile, error)
}
