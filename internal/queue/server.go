package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"medfetch/internal/types"
)

// Server wraps the Asynq server for job processing
type Server struct {
	asynq   *asynq.Server
	mux     *asynq.ServeMux
	logger  *zap.Logger
	handler JobHandler
}

// JobHandler processes dequeued download jobs
type JobHandler interface {
	HandleDownload(ctx context.Context, job *types.DownloadJob) error
}

// ServerConfig holds server configuration
type ServerConfig struct {
	RedisAddr     string
	RedisPassword string
	Concurrency   int
	Queues        map[string]int
	Logger        *zap.Logger
	Handler       JobHandler
}

// NewServer creates a new queue server
func NewServer(cfg ServerConfig) *Server {
	asynqServer := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword},
		asynq.Config{
			Concurrency:    cfg.Concurrency,
			Queues:         cfg.Queues,
			StrictPriority: false,
			Logger:         newAsynqLogger(cfg.Logger),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				cfg.Logger.Error("Task failed",
					zap.String("type", task.Type()),
					zap.Error(err),
				)
			}),
		},
	)

	mux := asynq.NewServeMux()

	srv := &Server{
		asynq:   asynqServer,
		mux:     mux,
		logger:  cfg.Logger,
		handler: cfg.Handler,
	}

	mux.HandleFunc(TypeDownload, srv.handleDownloadTask)

	return srv
}

// Start starts the server
func (s *Server) Start() error {
	s.logger.Info("Starting worker server")
	return s.asynq.Run(s.mux)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() {
	s.logger.Info("Shutting down worker server")
	s.asynq.Shutdown()
}

// handleDownloadTask processes a media download task
func (s *Server) handleDownloadTask(ctx context.Context, task *asynq.Task) error {
	var job types.DownloadJob
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	s.logger.Info("Processing download job",
		zap.String("job_id", job.ID),
		zap.String("url", job.Request.URL),
		zap.String("platform", job.Platform),
	)

	if err := s.handler.HandleDownload(ctx, &job); err != nil {
		s.logger.Error("Download job failed",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("Download job completed",
		zap.String("job_id", job.ID),
	)

	return nil
}

// asynqLogger adapts zap to the asynq.Logger interface. The sugared
// logger already takes variadic args, so no formatting layer is needed.
type asynqLogger struct {
	sugar *zap.SugaredLogger
}

func newAsynqLogger(logger *zap.Logger) asynqLogger {
	return asynqLogger{sugar: logger.Sugar()}
}

func (l asynqLogger) Debug(args ...interface{}) {
	l.sugar.Debug(args...)
}

func (l asynqLogger) Info(args ...interface{}) {
	l.sugar.Info(args...)
}

func (l asynqLogger) Warn(args ...interface{}) {
	l.sugar.Warn(args...)
}

func (l asynqLogger) Error(args ...interface{}) {
	l.sugar.Error(args...)
}

func (l asynqLogger) Fatal(args ...interface{}) {
	l.sugar.Fatal(args...)
}
