package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Local stores images on the local filesystem.
type Local struct {
	root    string
	baseURL string
}

var _ Storage = (*Local)(nil)

// NewLocal creates the root directory if needed.
func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return &Local{root: root, baseURL: baseURL}, nil
}

// Root returns the directory images are written to.
func (l *Local) Root() string {
	return l.root
}

func (l *Local) Save(_ context.Context, dir string, img *Image) (string, error) {
	key := newKey(dir, img.Ext)
	dst := filepath.Join(l.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}

	// write to a temp file first so readers never see a partial image
	tmp := filepath.Join(filepath.Dir(dst), "tmp_"+filepath.Base(dst))
	if err := os.WriteFile(tmp, img.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to move image into place: %w", err)
	}
	return key, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	if !validKey(key) {
		return fmt.Errorf("invalid media key %q", key)
	}
	err := os.Remove(filepath.Join(l.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

func (l *Local) URL(key string) string {
	if key == "" {
		return ""
	}
	return l.baseURL + key
}
