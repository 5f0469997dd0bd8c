package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// MediaPrefix is the URL path under which the API serves FileStore objects.
const MediaPrefix = "/media/"

var errInvalidKey = errors.New("storage: invalid key")

// FileStore keeps media under a local directory served by the API at
// MediaPrefix.
type FileStore struct {
	root    string
	baseURL string
}

func NewFileStore(root string) (*FileStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &FileStore{root: root}, nil
}

// SetPublicURL makes Put return absolute URLs under base, so remote providers
// can fetch keyframes from a locally served store.
func (s *FileStore) SetPublicURL(base string) {
	s.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
}

func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.root
}

// Put replaces the object at key atomically so a concurrent download never
// sees a partial file. The content type is implied by the key's extension.
func (s *FileStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	target := filepath.Join(s.root, filepath.FromSlash(clean))
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("storage: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("storage: write %s: %w", clean, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: close %s: %w", clean, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("storage: chmod %s: %w", clean, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("storage: publish %s: %w", clean, err)
	}
	return s.baseURL + MediaPrefix + clean, nil
}

// sanitizeKey turns key into a slash-separated relative path that cannot
// leave the root.
func sanitizeKey(key string) (string, error) {
	key = strings.ReplaceAll(strings.TrimSpace(key), `\`, "/")
	if key == "" {
		return "", errInvalidKey
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" {
		return "", errInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", errInvalidKey
		}
	}
	return cleaned, nil
}
