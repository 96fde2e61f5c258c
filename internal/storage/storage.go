// Package storage persists uploaded media files.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Dan9191/aromastream/internal/config"
)

// Storage stores uploaded files under slash-separated keys.
type Storage interface {
	// Save stores size bytes read from r under key.
	Save(ctx context.Context, key string, r io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	// URL returns the public location of key.
	URL(key string) string
}

// NewFromConfig creates the Storage selected by cfg.StorageType.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StorageType {
	case config.StorageFilesystem:
		return NewFileSystem(cfg.MediaRoot, cfg.MediaURL)
	case config.StorageS3:
		return NewS3FromConfig(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.StorageType)
	}
}

func joinURL(base, key string) string {
	if base == "" {
		return key
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(key, "/")
}
