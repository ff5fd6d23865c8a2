// Package storage persists artifact bytes and hands out public URLs for them.
package storage

import (
	"context"
	"errors"
	"fmt"

	"podstudio/internal/infra"
)

// ErrObjectNotFound is returned by Delete when the key does not exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// ObjectStore is the durable byte store behind artifacts and library saves.
type ObjectStore interface {
	// Put writes data under key and returns the canonical key.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	// URL returns the public URL of key. It does not check existence.
	URL(key string) string
}

// New builds the store selected by STORAGE_DRIVER.
func New(cfg *infra.Config) (ObjectStore, error) {
	switch cfg.StorageDriver {
	case "s3":
		store, err := NewS3Store(S3Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			UseSSL:        cfg.S3UseSSL,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "file", "":
		store, err := NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", cfg.StorageDriver)
	}
}
