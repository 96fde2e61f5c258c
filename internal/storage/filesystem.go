package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileSystem stores files below a root directory:
//
//	<root>/<year>/<month>/<day>/<name>.<ext>
type FileSystem struct {
	root    string
	baseURL string
}

// NewFileSystem creates a filesystem storage rooted at root. Files are served
// from baseURL.
func NewFileSystem(root, baseURL string) (*FileSystem, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return &FileSystem{root: root, baseURL: baseURL}, nil
}

// Root returns the directory files are stored in.
func (fs *FileSystem) Root() string {
	return fs.root
}

func (fs *FileSystem) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid storage key: %q", key)
	}
	return filepath.Join(fs.root, clean), nil
}

// Save writes the file using atomic write (temp file + rename).
func (fs *FileSystem) Save(ctx context.Context, key string, r io.Reader, size int64) error {
	destPath, err := fs.path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
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
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Delete removes the file; a missing file is not an error.
func (fs *FileSystem) Delete(ctx context.Context, key string) error {
	p, err := fs.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// URL implements Storage.
func (fs *FileSystem) URL(key string) string {
	return joinURL(fs.baseURL, key)
}
