package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"medfetch/internal/cache"
	"medfetch/internal/config"
	"medfetch/internal/credentials"
	"medfetch/internal/download"
	"medfetch/internal/extractor"
	"medfetch/internal/metrics"
	"medfetch/internal/platform"
	"medfetch/internal/queue"
	"medfetch/pkg/storage"
)

// Container holds the dependencies shared by the API and worker
// binaries
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Policies *platform.PolicySet
	Resolver *credentials.Resolver
	YtDlp    *extractor.YtDlp
	FFmpeg   *extractor.FFmpeg
	Cache    *cache.MetadataCache // nil when disabled or unreachable
	Queue    *queue.Client        // nil when the queue is disabled
	Storage  storage.Storage
	Local    *storage.LocalStorage // non-nil only for the local backend
	Service  *download.Service
	Metrics  *metrics.Metrics
}

// NewContainer wires the shared dependency set from configuration
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	policies, err := loadPolicies(cfg, logger)
	if err != nil {
		return nil, err
	}

	resolver := credentials.NewResolver(credentials.Config{
		CookiesDir:      cfg.Credentials.CookiesDir,
		TikTokUserAgent: cfg.Credentials.TikTokUserAgent,
		TikTokProxy:     cfg.Credentials.TikTokProxy,
		InstagramProxy:  cfg.Credentials.InstagramProxy,
	}, logger)

	ytdlp := extractor.NewYtDlp(
		cfg.Extractor.YtdlpPath,
		cfg.Extractor.FFmpegPath,
		cfg.Extractor.YtdlpTimeout,
		logger,
	)

	ffmpeg := extractor.NewFFmpeg(
		cfg.Extractor.FFmpegPath,
		cfg.Extractor.FFmpegTimeout,
		logger,
	)

	var metadataCache *cache.MetadataCache
	if cfg.Cache.Enabled {
		metadataCache, err = cache.NewMetadataCache(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Cache.TTL,
			logger,
		)
		if err != nil {
			logger.Warn("Metadata cache unavailable, continuing without it", zap.Error(err))
			metadataCache = nil
		}
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		queueClient = queue.NewClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Queue.TaskTimeout,
			logger,
		)
	}

	store, local, err := buildStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	metricsInstance := metrics.GetMetrics()

	service := download.NewService(download.Options{
		Policies:      policies,
		Resolver:      resolver,
		Invoker:       ytdlp,
		MetadataCache: metadataCache,
		Metrics:       metricsInstance,
		TempDir:       cfg.Extractor.TempDir,
		Debug:         cfg.Extractor.Debug,
		Logger:        logger,
	})

	logger.Info("Container initialized",
		zap.String("ytdlp", cfg.Extractor.YtdlpPath),
		zap.String("temp_dir", cfg.Extractor.TempDir),
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("cache", metadataCache != nil),
		zap.Bool("queue", queueClient != nil),
	)

	return &Container{
		Config:   cfg,
		Logger:   logger,
		Policies: policies,
		Resolver: resolver,
		YtDlp:    ytdlp,
		FFmpeg:   ffmpeg,
		Cache:    metadataCache,
		Queue:    queueClient,
		Storage:  store,
		Local:    local,
		Service:  service,
		Metrics:  metricsInstance,
	}, nil
}

// Close closes all resources
func (c *Container) Close() error {
	c.Logger.Info("Closing application container")

	if c.Queue != nil {
		if err := c.Queue.Close(); err != nil {
			c.Logger.Error("Failed to close queue client", zap.Error(err))
		}
	}

	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			c.Logger.Error("Failed to close metadata cache", zap.Error(err))
		}
	}

	return nil
}

func loadPolicies(cfg *config.Config, logger *zap.Logger) (*platform.PolicySet, error) {
	if cfg.Platforms.PoliciesFile == "" {
		return platform.DefaultPolicies(), nil
	}

	policies, err := platform.LoadPolicies(cfg.Platforms.PoliciesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load platform policies: %w", err)
	}

	logger.Info("Platform policies loaded",
		zap.String("file", cfg.Platforms.PoliciesFile),
	)
	return policies, nil
}

func buildStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, *storage.LocalStorage, error) {
	switch cfg.Storage.Backend {
	case "s3":
		s3Store, err := storage.NewS3Storage(context.Background(), storage.Config{
			Region:             cfg.Storage.S3Region,
			Bucket:             cfg.Storage.S3Bucket,
			Endpoint:           cfg.Storage.S3Endpoint,
			PresignedURLExpiry: cfg.Storage.PresignedURLExpiry,
			Logger:             logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		return s3Store, nil, nil

	default:
		local, err := storage.NewLocalStorage(cfg.Storage.LocalPath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		return local, local, nil
	}
}
