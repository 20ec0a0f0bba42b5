package storage

import (
	"context"
	"fmt"
	"io"
)

// Storage persists uploaded media and resolves public URLs for it.
type Storage interface {
	// Save stores the object under key.
	Save(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Delete removes the object. Missing objects are not an error.
	Delete(ctx context.Context, key string) error

	// URL returns the public URL for key.
	URL(key string) string
}

// Config holds storage configuration
type Config struct {
	Type      string // local, s3
	BasePath  string // local root directory
	BaseURL   string // public URL prefix
	Bucket    string
	Region    string
	Endpoint  string // custom S3 endpoint (MinIO, R2, Spaces)
	AccessKey string
	SecretKey string
}

// NewStorage creates the backend selected by cfg.Type.
func NewStorage(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStorage(cfg)
	case "s3":
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
