// Package storage persists uploaded assets (product images, avatars)
// behind a small interface with local disk, HTTP object service and
// SFTP backends.
package storage

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/zestcart/zestcart/config"
)

// Store saves assets under an object name and returns the public URL.
type Store interface {
	// Put writes an object and returns the URL it is served from.
	Put(ctx context.Context, name string, data []byte) (string, error)

	// Remove deletes an object, removing a missing object is not an error.
	Remove(ctx context.Context, name string) error
}

// New builds the asset store selected in the config.
func New(cfg config.StorageConfig, workdir string) (Store, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStore(filepath.Join(workdir, "uploads"), cfg.PublicURL)
	case "http":
		return NewHTTPStore(cfg)
	case "sftp":
		return NewSftpStore(cfg)
	default:
		return nil, errors.Errorf("unknown storage type %s", cfg.Type)
	}
}
