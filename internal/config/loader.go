package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"ocr": {"tesseract", "pdftext"},
	"tts": {"xtts"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Hosts
	if cfg.Hosts.Host1 == "" {
		errs = append(errs, errors.New("hosts.host1 is required"))
	}
	if cfg.Hosts.Host2 == "" {
		errs = append(errs, errors.New("hosts.host2 is required"))
	}
	if cfg.Hosts.Host1 != "" && cfg.Hosts.Host1 == cfg.Hosts.Host2 {
		errs = append(errs, fmt.Errorf("hosts.host1 and hosts.host2 are both %q; the two hosts must have distinct names", cfg.Hosts.Host1))
	}

	// Providers
	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required; script generation has no default backend"))
	}
	if cfg.Providers.TTS.Name == "" {
		errs = append(errs, errors.New("providers.tts.name is required; speech synthesis has no default backend"))
	}
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("ocr", cfg.Providers.OCR.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	for i, fb := range cfg.Providers.LLM.Fallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.llm.fallbacks[%d].name is required", i))
		}
		validateProviderName("llm", fb.Name)
	}
	for i, fb := range cfg.Providers.TTS.Fallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.tts.fallbacks[%d].name is required", i))
		}
		validateProviderName("tts", fb.Name)
	}
	if len(cfg.Providers.OCR.Fallbacks) > 0 {
		errs = append(errs, errors.New("providers.ocr.fallbacks is not supported; extraction already falls back to pdftext"))
	}
	if cfg.Providers.OCR.Name == "" {
		slog.Warn("providers.ocr is not configured; falling back to embedded-text extraction (pdftext), scanned documents will come out empty")
	}

	// Voice presets
	for host, path := range cfg.Voices.Presets {
		if path == "" {
			errs = append(errs, fmt.Errorf("voices.presets[%q] has an empty sample path", host))
		}
	}
	for _, host := range []string{cfg.Hosts.Host1, cfg.Hosts.Host2} {
		if host == "" {
			continue
		}
		if _, ok := cfg.Voices.Presets[host]; !ok {
			slog.Warn("host has no preset voice sample; runs must upload one", "host", host)
		}
	}

	// Pipeline
	if cfg.Pipeline.ScriptTimeout < 0 {
		errs = append(errs, fmt.Errorf("pipeline.script_timeout %v is negative", cfg.Pipeline.ScriptTimeout))
	}
	if cfg.Pipeline.PublishTimeout < 0 {
		errs = append(errs, fmt.Errorf("pipeline.publish_timeout %v is negative", cfg.Pipeline.PublishTimeout))
	}
	if cfg.Pipeline.RetryAttempts < 0 {
		errs = append(errs, fmt.Errorf("pipeline.retry_attempts %d is negative", cfg.Pipeline.RetryAttempts))
	}
	if cfg.Pipeline.SynthesisWorkers < 0 {
		errs = append(errs, fmt.Errorf("pipeline.synthesis_workers %d is negative", cfg.Pipeline.SynthesisWorkers))
	}

	// Storage
	if cfg.Storage.S3.Bucket == "" {
		errs = append(errs, errors.New("storage.s3.bucket is required"))
	}
	if cfg.Storage.S3.Region == "" && cfg.Storage.S3.Endpoint == "" {
		errs = append(errs, errors.New("storage.s3 needs a region or an endpoint"))
	}

	// Auth
	if cfg.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if cfg.Auth.TokenTTL < 0 {
		errs = append(errs, fmt.Errorf("auth.token_ttl %v is negative", cfg.Auth.TokenTTL))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name; may be a typo or a third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
