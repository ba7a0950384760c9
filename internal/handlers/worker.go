package handlers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"medfetch/internal/download"
	"medfetch/internal/errors"
	"medfetch/internal/extractor"
	"medfetch/internal/queue"
	"medfetch/internal/types"
	"medfetch/pkg/storage"
)

// DownloadWorker processes deferred download jobs: run the same
// pipeline the sync endpoint uses, post-process, upload, record the
// result.
type DownloadWorker struct {
	service       *download.Service
	ffmpeg        *extractor.FFmpeg
	storage       storage.Storage
	queue         *queue.Client
	presignExpiry time.Duration
	logger        *zap.Logger
}

// NewDownloadWorker creates a download worker
func NewDownloadWorker(
	service *download.Service,
	ffmpeg *extractor.FFmpeg,
	store storage.Storage,
	queueClient *queue.Client,
	presignExpiry time.Duration,
	logger *zap.Logger,
) *DownloadWorker {
	return &DownloadWorker{
		service:       service,
		ffmpeg:        ffmpeg,
		storage:       store,
		queue:         queueClient,
		presignExpiry: presignExpiry,
		logger:        logger,
	}
}

// HandleDownload processes one download job
func (w *DownloadWorker) HandleDownload(ctx context.Context, job *types.DownloadJob) error {
	w.logger.Info("Starting download job",
		zap.String("job_id", job.ID),
		zap.String("url", job.Request.URL),
	)

	if err := w.queue.UpdateJobStatus(ctx, job.ID, types.StatusProcessing, ""); err != nil {
		return err
	}

	path, result, err := w.service.DownloadToFile(ctx, job.Request)
	if err != nil {
		return w.fail(ctx, job.ID, err)
	}
	// Removes the produced file and any post-processing siblings
	// sharing its stem.
	defer w.service.Cleanup(path)

	path, err = w.postProcess(ctx, job, path)
	if err != nil {
		return w.fail(ctx, job.ID, err)
	}

	jobResult, err := w.upload(ctx, job, path, result)
	if err != nil {
		return w.fail(ctx, job.ID, err)
	}

	if err := w.queue.UpdateJobResult(ctx, job.ID, jobResult); err != nil {
		return err
	}

	w.logger.Info("Download job completed",
		zap.String("job_id", job.ID),
		zap.String("filename", jobResult.Filename),
		zap.Int64("size_bytes", jobResult.SizeBytes),
	)

	return nil
}

// postProcess converts the produced file when the container does not
// match what the job promised
func (w *DownloadWorker) postProcess(ctx context.Context, job *types.DownloadJob, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	if job.Request.AudioOnly {
		if ext == ".mp3" {
			return path, nil
		}
		// The extractor kept the original stream, convert it here.
		return w.ffmpeg.ExtractAudio(ctx, path, "mp3", "192k")
	}

	switch ext {
	case ".mp4", ".mp3":
		return path, nil
	}

	remuxed, err := w.ffmpeg.Remux(ctx, path, "mp4")
	if err != nil {
		// The stream itself is intact, deliver it in the original
		// container.
		w.logger.Warn("Remux failed, keeping original container",
			zap.String("file", path),
			zap.Error(err),
		)
		return path, nil
	}
	return remuxed, nil
}

// upload stores the artifact and builds the job result record
func (w *DownloadWorker) upload(ctx context.Context, job *types.DownloadJob, path string, result *download.Result) (*types.JobResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.ErrStorageFailed.WithCause(err)
	}

	filename := artifactFilename(path, result)
	mimeType := download.MIMEForFilename(filename)
	key := storage.GenerateKey(job.ID, filename)

	if err := w.storage.Upload(ctx, path, key, mimeType); err != nil {
		return nil, errors.ErrStorageFailed.WithCause(err)
	}

	downloadURL, err := w.storage.GetPresignedURL(ctx, key)
	if err != nil {
		return nil, errors.ErrStorageFailed.WithCause(err)
	}

	return &types.JobResult{
		DownloadURL: downloadURL,
		Filename:    filename,
		SizeBytes:   info.Size(),
		MIMEType:    mimeType,
		Format:      result.Format,
		Attempts:    result.Attempts,
		ExpiresAt:   time.Now().Add(w.presignExpiry),
	}, nil
}

// fail records the failure on the job before surfacing it to the queue
func (w *DownloadWorker) fail(ctx context.Context, jobID string, err error) error {
	w.logger.Error("Download job error",
		zap.String("job_id", jobID),
		zap.Error(err),
	)

	if updateErr := w.queue.UpdateJobStatus(ctx, jobID, types.StatusFailed, err.Error()); updateErr != nil {
		w.logger.Error("Failed to update job status",
			zap.Error(updateErr),
		)
	}

	return err
}

// artifactFilename names the stored artifact after the media title,
// falling back to the scratch file's own name
func artifactFilename(path string, result *download.Result) string {
	ext := strings.ToLower(filepath.Ext(path))
	if result.Metadata != nil && result.Metadata.Title != "" {
		if s := sanitizeFilename(result.Metadata.Title); s != "" {
			return s + ext
		}
	}
	return filepath.Base(path)
}
