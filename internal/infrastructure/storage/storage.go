// Package storage provides object storage for receipts, invoice PDFs and exports.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	infraconfig "github.com/kontor/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ErrObjectNotFound is returned by Get for a missing key
var ErrObjectNotFound = errors.New("object not found")

var errEmptyKey = errors.New("storage key is required")

// ObjectStorage is implemented by S3ObjectStorage and MemoryObjectStorage
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// New builds the storage backend selected by cfg.Provider
func New(ctx context.Context, cfg *infraconfig.StorageConfig, logger *zap.Logger) (ObjectStorage, error) {
	switch cfg.Provider {
	case "s3":
		s, err := NewS3ObjectStorage(ctx, cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case "memory", "":
		logger.Warn("using in-memory object storage; documents are lost on restart")
		return NewMemoryObjectStorage(""), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
