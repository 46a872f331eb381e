package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dreamlog/internal/dream"
)

// FileSystemStore is a filesystem-backed implementation of the MediaStore
// interface. Objects live under <root>/<ownerID>/<filename>; writes are
// atomic (temp file + rename) so a re-run of a failed upload never leaves a
// torn object behind.
type FileSystemStore struct {
	root string
}

// NewFileSystemStore creates a media store rooted at the given path.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return &FileSystemStore{root: root}, nil
}

// Put stores an object, overwriting any existing object at the key.
func (v *FileSystemStore) Put(_ context.Context, key string, r io.Reader, size int64, _ string) (string, error) {
	destPath := filepath.Join(v.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != size {
		return "", fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return v.urlFor(key), nil
}

// Get retrieves an object by key and writes it to w.
func (v *FileSystemStore) Get(_ context.Context, key string, w io.Writer) error {
	f, err := os.Open(filepath.Join(v.root, filepath.FromSlash(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("object not found: %s", key)
		}
		return fmt.Errorf("failed to open object: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read object: %w", err)
	}
	return nil
}

// Delete removes an object. Missing keys are not an error.
func (v *FileSystemStore) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(v.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// KeyFromURL derives the object key from a URL returned by Put.
func (v *FileSystemStore) KeyFromURL(url string) string {
	prefix := "file://" + filepath.ToSlash(v.root) + "/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}

// ValidateSetup verifies that the media root is an accessible directory.
func (v *FileSystemStore) ValidateSetup(context.Context) error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("media root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("media root is not a directory: %s", v.root)
	}
	return nil
}

func (v *FileSystemStore) urlFor(key string) string {
	return "file://" + filepath.ToSlash(v.root) + "/" + key
}

// Compile-time check that FileSystemStore implements dream.MediaStore.
var _ dream.MediaStore = (*FileSystemStore)(nil)
