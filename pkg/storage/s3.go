package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3Storage stores download artifacts in S3-compatible storage
type S3Storage struct {
	client             *s3.Client
	bucket             string
	endpoint           string // MinIO/R2 endpoint for public URL generation
	presignedURLExpiry time.Duration
	logger             *zap.Logger
}

// Config holds S3 storage configuration
type Config struct {
	Region             string
	Bucket             string
	Endpoint           string // For R2/MinIO
	PresignedURLExpiry time.Duration
	Logger             *zap.Logger
}

// NewS3Storage creates a new S3 storage client
func NewS3Storage(ctx context.Context, cfg Config) (*S3Storage, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	clientOpts := []func(*s3.Options){}

	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)

	return &S3Storage{
		client:             client,
		bucket:             cfg.Bucket,
		endpoint:           cfg.Endpoint,
		presignedURLExpiry: cfg.PresignedURLExpiry,
		logger:             cfg.Logger,
	}, nil
}

// Upload uploads a file to S3
func (s *S3Storage) Upload(ctx context.Context, filePath, key, contentType string) error {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	s.logger.Info("Uploading artifact to S3",
		zap.String("file", filePath),
		zap.String("key", key),
		zap.Int64("size", fileInfo.Size()),
	)

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   file,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	s.logger.Info("Upload completed",
		zap.String("key", key),
	)

	return nil
}

// UploadStream uploads data from a reader
func (s *S3Storage) UploadStream(ctx context.Context, reader io.Reader, key, contentType string) error {
	s.logger.Info("Streaming upload to S3",
		zap.String("key", key),
	)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   reader,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to stream to S3: %w", err)
	}

	s.logger.Info("Stream upload completed",
		zap.String("key", key),
	)

	return nil
}

// GetPresignedURL generates a presigned URL for downloading
func (s *S3Storage) GetPresignedURL(ctx context.Context, key string) (string, error) {
	// For public buckets (MinIO/R2 with public access), return direct URL
	if s.endpoint != "" {
		publicURL := fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
		return publicURL, nil
	}

	presignClient := s3.NewPresignClient(s.client)

	req, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.presignedURLExpiry
	})

	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	s.logger.Info("Generated presigned URL",
		zap.String("key", key),
		zap.Duration("expires_in", s.presignedURLExpiry),
	)

	return req.URL, nil
}

// Delete deletes an artifact from S3
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	s.logger.Info("Artifact deleted",
		zap.String("key", key),
	)

	return nil
}

// GenerateKey creates a unique storage key for a job artifact.
// Structure: jobs/{date}/{job_id}/{filename}
func GenerateKey(jobID, filename string) string {
	date := time.Now().Format("2006-01-02")
	return path.Join("jobs", date, jobID, filename)
}
