package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// URLPrefix is the public path avatars are served under.
const URLPrefix = "/uploads/avatars/"

// LocalStore writes blobs to a directory on disk.
type LocalStore struct {
	dir string
}

// NewLocalStore creates dir if needed and returns a store over it.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage: avatar dir not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create avatar dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir returns the directory blobs are written to, for static file serving.
func (s *LocalStore) Dir() string { return s.dir }

// Save writes the blob under a random name so uploads never collide or
// overwrite each other.
func (s *LocalStore) Save(ctx context.Context, r io.Reader, ext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.New().String() + sanitizeExt(ext)
	dst := filepath.Join(s.dir, name)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: create blob: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("storage: write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("storage: close blob: %w", err)
	}

	return URLPrefix + name, nil
}

// Delete removes the blob for url. Missing files are ignored so account
// cleanup stays idempotent.
func (s *LocalStore) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name, ok := keyFromURL(url)
	if !ok {
		return nil
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete blob: %w", err)
	}
	return nil
}

// keyFromURL extracts the blob name from a public URL, rejecting anything
// that could escape the storage directory.
func keyFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, URLPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(url, URLPrefix)
	if name == "" || name != path.Base(name) {
		return "", false
	}
	return name, true
}

func sanitizeExt(ext string) string {
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if ext != path.Base(ext) || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return strings.ToLower(ext)
}
