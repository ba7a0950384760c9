package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// LocalStorage keeps download artifacts on the local filesystem
type LocalStorage struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalStorage creates a new local storage handler
func NewLocalStorage(basePath string, logger *zap.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
		logger:   logger,
	}, nil
}

// Upload copies a file into local storage under key
func (ls *LocalStorage) Upload(ctx context.Context, filePath, key, contentType string) error {
	fullPath := filepath.Join(ls.basePath, key)
	dir := filepath.Dir(fullPath)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	src, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}

	ls.logger.Info("Artifact stored locally",
		zap.String("key", key),
		zap.String("path", fullPath),
	)

	return nil
}

// UploadStream writes from a reader into local storage
func (ls *LocalStorage) UploadStream(ctx context.Context, reader io.Reader, key, contentType string) error {
	fullPath := filepath.Join(ls.basePath, key)
	dir := filepath.Dir(fullPath)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	ls.logger.Info("Stream stored locally", zap.String("key", key))
	return nil
}

// GetPresignedURL returns the serving path for a local artifact.
// The API serves the storage directory under /files/.
func (ls *LocalStorage) GetPresignedURL(ctx context.Context, key string) (string, error) {
	return "/files/" + key, nil
}

// GetFile opens a stored artifact for direct serving
func (ls *LocalStorage) GetFile(ctx context.Context, key string) (*os.File, error) {
	fullPath := filepath.Join(ls.basePath, key)
	return os.Open(fullPath)
}

// Delete removes an artifact from local storage
func (ls *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath := filepath.Join(ls.basePath, key)
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// BasePath returns the storage root for static file serving
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// Cleanup removes artifacts older than maxAge
func (ls *LocalStorage) Cleanup(ctx context.Context, maxAge time.Duration) error {
	return filepath.Walk(ls.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		if time.Since(info.ModTime()) > maxAge {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				ls.logger.Error("Failed to delete old artifact", zap.Error(err), zap.String("path", path))
			}
		}

		return nil
	})
}
