package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a dataset object does not exist.
var ErrNotFound = errors.New("object not found")

// Backend is a read-only source the dataset is fetched from.
type Backend interface {
	// Open returns a reader over the object at path. Callers must close it.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists checks if an object exists at the specified path
	Exists(ctx context.Context, path string) (bool, error)

	// Close closes any resources held by the backend
	Close() error

	// Type returns the storage type identifier ("local", "s3")
	Type() string
}

// Config selects and configures a backend.
type Config struct {
	Backend   string // "local" or "s3"
	LocalPath string
	S3        S3Config
}

// New creates the backend named by cfg.Backend.
func New(cfg Config, logger zerolog.Logger) (Backend, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalBackend(cfg.LocalPath, logger)
	case "s3", "minio":
		return NewS3Backend(&cfg.S3, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q (use local or s3)", cfg.Backend)
	}
}
