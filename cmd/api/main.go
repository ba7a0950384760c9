package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"medfetch/internal/app"
	"medfetch/internal/cleanup"
	"medfetch/internal/config"
	"medfetch/internal/handlers"
	"medfetch/internal/logger"
	"medfetch/internal/middleware"
	"medfetch/internal/shutdown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	zapLogger, err := logger.New("api", logger.Config{
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

	history := handlers.NewHistory(20)
	mediaHandler := handlers.NewMediaHandler(container.Service, history, zapLogger)
	healthHandler := handlers.NewHealthHandler(container.YtDlp, container.Queue, zapLogger)
	historyHandler := handlers.NewHistoryHandler(history, zapLogger)

	api := fiber.New(fiber.Config{
		AppName:      "medfetch",
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		// Requests carry JSON only, media flows the other way
		BodyLimit:         1 * 1024 * 1024,
		ReduceMemoryUsage: true,
	})

	// Error rendering sits outermost so that panics recovered below it
	// still come back as the standard error envelope.
	api.Use(middleware.ErrorHandlingMiddleware(zapLogger))
	api.Use(middleware.RequestLogger(zapLogger))
	api.Use(recover.New())
	api.Use(middleware.CompressionMiddleware())
	api.Use(cors.New(cors.Config{
		AllowOrigins: cfg.API.CORSOrigins,
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-API-Key",
	}))
	api.Use(func(c *fiber.Ctx) error {
		container.Metrics.IncrementRequests()
		return c.Next()
	})

	auth := middleware.APIKeyAuth(cfg.API.APIKeys)

	limit := func(c *fiber.Ctx) error { return c.Next() }
	if cfg.API.RateLimitPerMin > 0 {
		limiter := middleware.NewRateLimiter(cfg.API.RateLimitPerMin, cfg.API.RateLimitWindow)
		limit = limiter.Middleware()
	}

	api.Get("/health", healthHandler.Health)
	api.Get("/health/ready", healthHandler.Readiness)
	api.Get("/health/live", healthHandler.Liveness)

	api.Get("/metrics", middleware.HTTPCache(30), func(c *fiber.Ctx) error {
		return c.JSON(container.Metrics.GetSnapshot())
	})

	api.Post("/download", auth, limit, mediaHandler.Download)
	api.Post("/extract", auth, limit, mediaHandler.Extract)
	api.Get("/info", auth, limit, mediaHandler.Info)
	api.Post("/list-formats", auth, limit, mediaHandler.ListFormats)
	api.Get("/search", auth, limit, mediaHandler.Search)

	api.Get("/history", auth, historyHandler.GetHistory)
	api.Delete("/history", auth, historyHandler.ClearHistory)

	if container.Queue != nil {
		jobsHandler := handlers.NewJobsHandler(container.Queue, container.Service, zapLogger)
		jobs := api.Group("/jobs", auth, limit)
		jobs.Post("/download", jobsHandler.Enqueue)
		jobs.Get("/:id", jobsHandler.Status)
		jobs.Get("/:id/result", jobsHandler.Result)
	}

	// Local artifacts are served straight off disk. S3 artifacts come
	// back as presigned URLs instead, so no route is needed.
	if container.Local != nil {
		api.Static("/files", container.Local.BasePath(), fiber.Static{
			ByteRange: true,
			Download:  true,
			MaxAge:    3600,
		})
	}

	if cfg.API.EnablePprof {
		handlers.RegisterPprofRoutes(api)
		zapLogger.Warn("pprof endpoints enabled, do not expose these publicly")
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
	gs.Register("http server", func(ctx context.Context) error {
		return api.ShutdownWithContext(ctx)
	})

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		if err := api.Listen(addr); err != nil {
			zapLogger.Fatal("Server stopped unexpectedly", zap.Error(err))
		}
	}()

	zapLogger.Info("API server started",
		zap.Int("port", cfg.API.Port),
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("queue", container.Queue != nil),
		zap.Bool("cache", container.Cache != nil),
	)

	gs.Wait()
}
