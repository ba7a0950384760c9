package storage

import (
	"context"
	"io"
)

// Storage is the interface for artifact storage operations
type Storage interface {
	Upload(ctx context.Context, filePath, key, contentType string) error
	UploadStream(ctx context.Context, reader io.Reader, key, contentType string) error
	GetPresignedURL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
