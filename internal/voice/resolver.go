// Package voice resolves each podcast host to a concrete reference voice
// sample for one pipeline run. A host's sample is either a shared built-in
// preset clip or a per-run uploaded clip; uploads take precedence and live in
// the run's temporary directory, so they disappear with the run.
package voice

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/unipodhq/unipod/internal/audio"
	"github.com/unipodhq/unipod/pkg/provider/tts"
)

// Resolver maps host names to reference voice samples.
type Resolver struct {
	presets map[string]string // host name -> preset sample path
}

// NewResolver creates a resolver with a preset sample path per host. Every
// host the pipeline will synthesize for must have a preset, since uploads
// are optional.
func NewResolver(presets map[string]string) (*Resolver, error) {
	if len(presets) == 0 {
		return nil, fmt.Errorf("voice: at least one preset voice is required")
	}
	for host, path := range presets {
		if host == "" {
			return nil, fmt.Errorf("voice: preset with empty host name")
		}
		if path == "" {
			return nil, fmt.Errorf("voice: preset for host %q has no sample path", host)
		}
	}
	return &Resolver{presets: presets}, nil
}

// Resolve produces a VoiceProfile per host for one run. Uploaded samples are
// validated as WAV containers and written under dir (the run's temporary
// directory); a host without an upload falls back to its preset. The preset
// file must exist and be readable at resolve time, not just at synthesis
// time, so misconfiguration fails the run before any synthesis cost is paid.
func (r *Resolver) Resolve(dir string, uploads map[string][]byte) (map[string]tts.VoiceProfile, error) {
	profiles := make(map[string]tts.VoiceProfile, len(r.presets))

	for host, preset := range r.presets {
		sample, uploaded := uploads[host]
		if uploaded && len(sample) > 0 {
			if _, err := audio.ParseWAV(sample); err != nil {
				return nil, fmt.Errorf("voice: uploaded sample for host %q: %w", host, err)
			}
			path := filepath.Join(dir, fmt.Sprintf("voice-%s.wav", sanitize(host)))
			if err := os.WriteFile(path, sample, 0o600); err != nil {
				return nil, fmt.Errorf("voice: store uploaded sample for host %q: %w", host, err)
			}
			profiles[host] = tts.VoiceProfile{
				ID:       path,
				Name:     host,
				Provider: "upload",
			}
			continue
		}

		f, err := os.Open(preset)
		if err != nil {
			return nil, fmt.Errorf("voice: preset sample for host %q: %w", host, err)
		}
		f.Close()
		profiles[host] = tts.VoiceProfile{
			ID:       preset,
			Name:     host,
			Provider: "preset",
		}
	}
	return profiles, nil
}

// sanitize keeps host names safe for use in a file name.
func sanitize(host string) string {
	out := make([]rune, 0, len(host))
	for _, r := range host {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
