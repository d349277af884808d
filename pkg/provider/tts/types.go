package tts

// VoiceProfile describes the voice used to synthesise one podcast host.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier. For XTTS this is the
	// filesystem path of the reference WAV sample (speaker_wav).
	ID string

	// Name is the human-readable voice name, typically the host name.
	Name string

	// Provider identifies which TTS provider this voice belongs to.
	Provider string

	// Metadata holds provider-specific voice attributes (e.g., whether the
	// sample is a built-in preset or a per-run upload).
	Metadata map[string]string
}
