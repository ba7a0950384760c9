package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"medfetch/internal/app"
	"medfetch/internal/cleanup"
	"medfetch/internal/config"
	"medfetch/internal/handlers"
	"medfetch/internal/logger"
	"medfetch/internal/queue"
	"medfetch/internal/shutdown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	zapLogger, err := logger.New("worker", logger.Config{
		Level:         cfg.Logger.Level,
		FileName:      cfg.Logger.FileName,
		MaxSize:       cfg.Logger.MaxSize,
		MaxBackups:    cfg.Logger.MaxBackups,
		MaxAge:        cfg.Logger.MaxAge,
		Compress:      cfg.Logger.Compress,
		Format:        cfg.Logger.Format,
		ConsoleOutput: cfg.Logger.ConsoleOutput,
	})
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer zapLogger.Sync()

	container, err := app.NewContainer(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to wire dependencies", zap.Error(err))
	}

	if container.Queue == nil {
		zapLogger.Fatal("Queue is disabled, the worker has nothing to consume. Set QUEUE_ENABLED=true.")
	}

	worker := handlers.NewDownloadWorker(
		container.Service,
		container.FFmpeg,
		container.Storage,
		container.Queue,
		cfg.Storage.PresignedURLExpiry,
		zapLogger,
	)

	srv := queue.NewServer(queue.ServerConfig{
		RedisAddr:     cfg.Redis.Address,
		RedisPassword: cfg.Redis.Password,
		Concurrency:   cfg.Queue.Concurrency,
		// High-resolution jobs burn the most wall clock, so they get
		// the most slots. Audio-only work rides the low queue.
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
		Logger:  zapLogger,
		Handler: worker,
	})

	var sweeper *cleanup.ScratchSweeper
	if cfg.Cleanup.Enabled {
		sweeper = cleanup.NewScratchSweeper(
			cfg.Extractor.TempDir,
			cfg.Cleanup.MaxAge,
			cfg.Cleanup.Interval,
			zapLogger,
		)
		sweeper.Start(context.Background())
	}

	// Local artifacts have no lifecycle rules like S3 buckets do, so
	// the worker sweeps expired ones itself.
	var retentionStop chan struct{}
	if container.Local != nil {
		retentionStop = make(chan struct{})
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := container.Local.Cleanup(context.Background(), cfg.Storage.Retention); err != nil {
						zapLogger.Warn("Artifact retention sweep failed", zap.Error(err))
					}
				case <-retentionStop:
					return
				}
			}
		}()
	}

	gs := shutdown.NewGracefulShutdown(zapLogger, 30*time.Second)
	gs.Register("dependency container", func(ctx context.Context) error {
		return container.Close()
	})
	if sweeper != nil {
		gs.Register("scratch sweeper", func(ctx context.Context) error {
			sweeper.Stop()
			return nil
		})
	}
	if retentionStop != nil {
		gs.Register("retention sweeper", func(ctx context.Context) error {
			close(retentionStop)
			return nil
		})
	}
	gs.Register("queue server", func(ctx context.Context) error {
		srv.Shutdown()
		return nil
	})

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("Worker stopped unexpectedly", zap.Error(err))
		}
	}()

	zapLogger.Info("Download worker started",
		zap.Int("concurrency", cfg.Queue.Concurrency),
		zap.String("storage", cfg.Storage.Backend),
	)

	gs.Wait()
}
