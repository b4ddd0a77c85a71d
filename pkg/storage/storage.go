package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/feichai0017/pdf2md/pkg/logger"
	"github.com/feichai0017/pdf2md/pkg/storage/minio"
	"github.com/feichai0017/pdf2md/pkg/storage/s3"
)

type StorageType string

const (
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// Storage uploads conversion artifacts.
type Storage interface {
	// Store writes the reader's content under key and returns the object's
	// location.
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
}

// ParseStorageType maps a configuration value onto a StorageType. The empty
// string means uploads are disabled.
func ParseStorageType(s string) (StorageType, error) {
	switch t := StorageType(strings.ToLower(strings.TrimSpace(s))); t {
	case "", StorageTypeS3, StorageTypeMinio:
		return t, nil
	default:
		return "", fmt.Errorf("unsupported storage type: %s", s)
	}
}

// NewStorage builds the backend for storageType from the environment
// configuration.
func NewStorage(ctx context.Context, storageType StorageType, log logger.Logger) (Storage, error) {
	switch storageType {
	case StorageTypeS3:
		return s3.GetClient(ctx, log)
	case StorageTypeMinio:
		return minio.GetClient(ctx, log)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
