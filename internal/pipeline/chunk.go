package pipeline

import (
	"fmt"
	"os"
)

// writeChunk stores one synthesized WAV payload at path.
func writeChunk(path string, wav []byte) error {
	if err := os.WriteFile(path, wav, 0o600); err != nil {
		return fmt.Errorf("write synthesis chunk: %w", err)
	}
	return nil
}
