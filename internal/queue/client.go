package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"medfetch/internal/errors"
	"medfetch/internal/types"
)

// Task types
const (
	TypeDownload = "download:media"
)

// jobTTL is how long finished job records stay readable in Redis.
const jobTTL = 7 * 24 * time.Hour

// Client wraps the Asynq client for job enqueueing
type Client struct {
	asynq       *asynq.Client
	redis       *redis.Client
	taskTimeout time.Duration
	logger      *zap.Logger
}

// NewClient creates a new queue client
func NewClient(redisAddr, password string, taskTimeout time.Duration, logger *zap.Logger) *Client {
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: password,
	})

	redisClient := redis.NewClient(&redis.Options{
		Addr:         redisAddr,
		Password:     password,
		PoolSize:     20,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	if taskTimeout <= 0 {
		taskTimeout = 15 * time.Minute
	}

	return &Client{
		asynq:       asynqClient,
		redis:       redisClient,
		taskTimeout: taskTimeout,
		logger:      logger,
	}
}

// EnqueueDownloadJob stores a pending job record and enqueues the download task
func (c *Client) EnqueueDownloadJob(ctx context.Context, req types.DownloadRequest, platform string) (*types.DownloadJob, error) {
	jobID := uuid.New().String()

	job := types.DownloadJob{
		ID:        jobID,
		Request:   req,
		Platform:  platform,
		Status:    types.StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := c.storeJob(ctx, &job); err != nil {
		return nil, fmt.Errorf("failed to store job record: %w", err)
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	task := asynq.NewTask(TypeDownload, payload)
	taskOpts := []asynq.Option{
		asynq.Queue(c.queueForRequest(req)),
		asynq.MaxRetry(0), // the format fallback inside the worker is the only retry path
		asynq.Timeout(c.taskTimeout),
		asynq.Retention(jobTTL),
		asynq.TaskID(jobID),
	}

	info, err := c.asynq.EnqueueContext(ctx, task, taskOpts...)
	if err != nil {
		return nil, errors.ErrQueueFailed.WithCause(err)
	}

	c.logger.Info("Job enqueued",
		zap.String("job_id", jobID),
		zap.String("url", req.URL),
		zap.String("platform", platform),
		zap.String("queue", info.Queue),
	)

	return &job, nil
}

// GetJob retrieves the current record of a job
func (c *Client) GetJob(ctx context.Context, jobID string) (*types.DownloadJob, error) {
	key := fmt.Sprintf("job:%s", jobID)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.ErrJobNotFound.WithDetails(jobID)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	var job types.DownloadJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// UpdateJobStatus updates the status of a job
func (c *Client) UpdateJobStatus(ctx context.Context, jobID string, status types.JobStatus, errorMsg string) error {
	job, err := c.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = status
	job.UpdatedAt = time.Now()
	if errorMsg != "" {
		job.Error = errorMsg
	}

	return c.storeJob(ctx, job)
}

// UpdateJobResult marks a job completed and attaches its artifact record
func (c *Client) UpdateJobResult(ctx context.Context, jobID string, result *types.JobResult) error {
	job, err := c.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = types.StatusCompleted
	job.Result = result
	job.UpdatedAt = time.Now()

	return c.storeJob(ctx, job)
}

// storeJob persists the job record in Redis
func (c *Client) storeJob(ctx context.Context, job *types.DownloadJob) error {
	key := fmt.Sprintf("job:%s", job.ID)
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return c.redis.Set(ctx, key, data, jobTTL).Err()
}

// queueForRequest picks the priority queue for a request. Heavy video
// work lands in critical so a burst of cheap audio jobs cannot starve it.
func (c *Client) queueForRequest(req types.DownloadRequest) string {
	if req.AudioOnly {
		return "low"
	}
	switch req.Quality {
	case "4k", "2160p", "1440p":
		return "critical"
	case "", "best", "1080p":
		return "default"
	default:
		return "low"
	}
}

// Close closes the client connections
func (c *Client) Close() error {
	if err := c.asynq.Close(); err != nil {
		return err
	}
	return c.redis.Close()
}

// GetRedis returns the underlying redis client
func (c *Client) GetRedis() *redis.Client {
	return c.redis
}
