package media

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/jon4hz/foodgram/internal/config"
)

// Storage persists normalized images under opaque keys.
type Storage interface {
	// Save stores the image below dir and returns its key.
	Save(ctx context.Context, dir string, img *Image) (string, error)
	// Delete removes the image. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// URL returns the absolute URL the image is served from.
	URL(key string) string
}

// NewStorage creates the storage backend selected in the configuration.
func NewStorage(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.Media.Backend {
	case config.MediaBackendLocal:
		return NewLocal(cfg.Media.Root, cfg.MediaURL)
	case config.MediaBackendS3:
		return NewS3(ctx, cfg.Media.S3, cfg.MediaURL)
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Media.Backend)
	}
}

func newKey(dir, ext string) string {
	return path.Join(dir, uuid.NewString()+ext)
}

// validKey rejects keys that could escape the storage root.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") {
		return false
	}
	return path.Clean(key) == key && !strings.HasPrefix(key, "..")
}
