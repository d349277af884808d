package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is the run-scoped temporary directory. Every transient artifact
// of a run (uploaded voice samples, synthesis chunks, the assembled track,
// the encoded episode) lives inside it, and Close removes the whole tree.
// Acquire once per run, release unconditionally on every exit path.
type Workspace struct {
	dir string
}

// NewWorkspace creates a fresh run directory under base. An empty base uses
// the system temp directory.
func NewWorkspace(base string) (*Workspace, error) {
	dir, err := os.MkdirTemp(base, "unipod-run-*")
	if err != nil {
		return nil, fmt.Errorf("pipeline: create run workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace root.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path joins elem onto the workspace root.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.dir}, elem...)...)
}

// Close removes the workspace and everything in it.
func (w *Workspace) Close() error {
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("pipeline: remove run workspace: %w", err)
	}
	return nil
}
