package voice

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/unipodhq/unipod/internal/audio"
)

func presetFixture(t *testing.T, dir, name string) string {
	t.Helper()
	wav, err := audio.EncodeWAV([]byte{1, 0, 2, 0}, 22050, 1)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	return path
}

func TestResolvePresetsOnly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	jordan := presetFixture(t, dir, "jordan.wav")
	taylor := presetFixture(t, dir, "taylor.wav")

	r, err := NewResolver(map[string]string{"Jordan": jordan, "Taylor": taylor})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	profiles, err := r.Resolve(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if profiles["Jordan"].ID != jordan {
		t.Errorf("Jordan sample = %s, want preset %s", profiles["Jordan"].ID, jordan)
	}
	if profiles["Taylor"].Provider != "preset" {
		t.Errorf("Taylor provider = %s, want preset", profiles["Taylor"].Provider)
	}
}

func TestResolveUploadTakesPrecedence(t *testing.T) {
	t.Parallel()

	presetDir := t.TempDir()
	jordan := presetFixture(t, presetDir, "jordan.wav")
	taylor := presetFixture(t, presetDir, "taylor.wav")

	upload, err := audio.EncodeWAV([]byte{9, 0, 8, 0}, 22050, 1)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	r, err := NewResolver(map[string]string{"Jordan": jordan, "Taylor": taylor})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	runDir := t.TempDir()
	profiles, err := r.Resolve(runDir, map[string][]byte{"Jordan": upload})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if profiles["Jordan"].Provider != "upload" {
		t.Errorf("Jordan provider = %s, want upload", profiles["Jordan"].Provider)
	}
	if !strings.HasPrefix(profiles["Jordan"].ID, runDir) {
		t.Errorf("uploaded sample %s not under run dir %s", profiles["Jordan"].ID, runDir)
	}
	if _, err := os.Stat(profiles["Jordan"].ID); err != nil {
		t.Errorf("uploaded sample not readable: %v", err)
	}
	if profiles["Taylor"].ID != taylor {
		t.Errorf("Taylor sample = %s, want preset", profiles["Taylor"].ID)
	}
}

func TestResolveRejectsInvalidUpload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	jordan := presetFixture(t, dir, "jordan.wav")

	r, err := NewResolver(map[string]string{"Jordan": jordan})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	if _, err := r.Resolve(t.TempDir(), map[string][]byte{"Jordan": []byte("not audio")}); err == nil {
		t.Error("expected error for non-WAV upload")
	}
}

func TestResolveMissingPreset(t *testing.T) {
	t.Parallel()

	r, err := NewResolver(map[string]string{"Jordan": "/nonexistent/jordan.wav"})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	if _, err := r.Resolve(t.TempDir(), nil); err == nil {
		t.Error("expected error for missing preset file")
	}
}

func TestNewResolverValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewResolver(nil); err == nil {
		t.Error("expected error for empty preset map")
	}
	if _, err := NewResolver(map[string]string{"Jordan": ""}); err == nil {
		t.Error("expected error for preset with no path")
	}
}
