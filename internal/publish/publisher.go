// Package publish uploads encoded podcast episodes to durable blob storage
// and hands back a stable address for the episode record. Keys are namespaced
// by owner and playlist and carry a fresh unique suffix per run, so two runs
// over identical input never collide.
package publish

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Key identifies where an artifact belongs in the store's namespace.
type Key struct {
	// OwnerID is the uploading user's identifier.
	OwnerID string

	// Playlist is the playlist the episode is filed under.
	Playlist string
}

// Validate reports whether the key can form a storage path.
func (k Key) Validate() error {
	if strings.TrimSpace(k.OwnerID) == "" {
		return fmt.Errorf("publish: owner id is required")
	}
	if strings.TrimSpace(k.Playlist) == "" {
		return fmt.Errorf("publish: playlist is required")
	}
	return nil
}

// objectKey builds the unique storage key for one artifact:
// {owner}/{playlist}/{UTC timestamp}-{random}.mp3.
func (k Key) objectKey(now time.Time) string {
	return fmt.Sprintf("%s/%s/%s-%s.mp3",
		k.OwnerID,
		k.Playlist,
		now.UTC().Format("20060102-150405"),
		strings.ReplaceAll(uuid.NewString(), "-", ""),
	)
}

// Publisher uploads a local artifact file and returns its durable address.
//
// Implementations must only return an address once the upload has fully
// completed, and must delete the local file after a successful upload. On
// failure the local file is left in place for the caller's cleanup.
type Publisher interface {
	Publish(ctx context.Context, localPath string, key Key) (string, error)
}
