package download

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"medfetch/internal/cache"
	"medfetch/internal/credentials"
	"medfetch/internal/dedup"
	"medfetch/internal/errors"
	"medfetch/internal/extractor"
	"medfetch/internal/metrics"
	"medfetch/internal/platform"
	"medfetch/internal/types"
)

// Result is a completed synchronous download
type Result struct {
	Artifact *Artifact
	Platform platform.Tag
	Format   string // Candidate that produced the file
	Attempts int
	Metadata *types.MediaMetadata
}

// Service runs the download pipeline: classify the URL, resolve
// credentials, assemble the configuration, walk format candidates, and
// materialize the artifact
type Service struct {
	policies      *platform.PolicySet
	resolver      *credentials.Resolver
	invoker       Invoker
	executor      *Executor
	materializer  *Materializer
	metadataCache *cache.MetadataCache // nil when Redis is disabled
	flight        *dedup.Flight
	metrics       *metrics.Metrics
	tempDir       string
	debug         bool
	logger        *zap.Logger
}

// Options configures a Service
type Options struct {
	Policies      *platform.PolicySet
	Resolver      *credentials.Resolver
	Invoker       Invoker
	MetadataCache *cache.MetadataCache
	Metrics       *metrics.Metrics
	TempDir       string
	Debug         bool
	Logger        *zap.Logger
}

// NewService wires the download pipeline
func NewService(opts Options) *Service {
	if opts.Metrics == nil {
		opts.Metrics = metrics.GetMetrics()
	}
	return &Service{
		policies:      opts.Policies,
		resolver:      opts.Resolver,
		invoker:       opts.Invoker,
		executor:      NewExecutor(opts.Invoker, opts.Logger),
		materializer:  NewMaterializer(opts.Logger),
		metadataCache: opts.MetadataCache,
		flight:        dedup.NewFlight(),
		metrics:       opts.Metrics,
		tempDir:       opts.TempDir,
		debug:         opts.Debug,
		logger:        opts.Logger,
	}
}

// Prepare classifies a URL and resolves its credentials without
// invoking the extractor. Jobs call it at enqueue time so a missing
// cookie fails the request, not the worker.
func (s *Service) Prepare(rawURL string) (platform.Tag, platform.Policy, credentials.Bundle, error) {
	url := NormalizeURL(rawURL)
	tag := platform.Classify(url)
	pol := s.policies.For(tag)

	bundle, err := s.resolver.Resolve(pol)
	if err != nil {
		s.metrics.RecordAuthRejection(string(tag))
		return tag, pol, credentials.Bundle{}, err
	}

	return tag, pol, bundle, nil
}

// Download runs the full pipeline and returns the artifact in memory.
// The scratch files are gone by the time it returns, on every path.
func (s *Service) Download(ctx context.Context, req types.DownloadRequest) (*Result, error) {
	url := NormalizeURL(req.URL)
	started := time.Now()

	tag, pol, bundle, err := s.Prepare(url)
	if err != nil {
		return nil, err
	}

	cfg, candidates := BuildConfig(pol, bundle, Overrides{
		Format:    req.Format,
		Quality:   req.Quality,
		AudioOnly: req.AudioOnly,
		Subtitles: req.Subtitles,
	})

	stem := s.scratchStem()
	cfg.OutputPath = stem + ".%(ext)s"
	cfg.Quiet = !s.debug

	s.logger.Info("Starting download",
		zap.String("url", url),
		zap.String("platform", string(tag)),
		zap.String("cookies", s.resolver.Describe(pol)),
		zap.Int("candidates", len(candidates)),
	)
	s.metrics.RecordDownloadStart(string(tag))

	outcome := s.executor.Execute(ctx, url, cfg, candidates)
	if outcome.State != Succeeded {
		// Failed attempts can leave partial files behind
		s.materializer.Discard(stem)
		s.metrics.RecordDownloadFailure(string(tag), outcome.Attempts)
		s.logger.Error("All format candidates failed",
			zap.String("url", url),
			zap.String("platform", string(tag)),
			zap.Int("attempts", outcome.Attempts),
			zap.Error(outcome.LastErr),
		)
		return nil, errors.ErrExtractionFailed.WithCause(outcome.LastErr).WithDetails(string(tag))
	}

	artifact, err := s.materializer.Materialize(stem)
	if err != nil {
		s.metrics.RecordDownloadFailure(string(tag), outcome.Attempts)
		return nil, err
	}

	s.metrics.RecordDownloadSuccess(string(tag), outcome.Attempts, time.Since(started), artifact.Size)
	s.logger.Info("Download completed",
		zap.String("url", url),
		zap.String("platform", string(tag)),
		zap.String("format", outcome.Candidate),
		zap.Int("attempts", outcome.Attempts),
		zap.Int64("size_bytes", artifact.Size),
	)

	return &Result{
		Artifact: artifact,
		Platform: tag,
		Format:   outcome.Candidate,
		Attempts: outcome.Attempts,
		Metadata: outcome.Metadata,
	}, nil
}

// DownloadToFile runs the pipeline but leaves the artifact on disk and
// returns its path. The job worker uploads from disk instead of
// buffering; the caller owns removal via Cleanup.
func (s *Service) DownloadToFile(ctx context.Context, req types.DownloadRequest) (string, *Result, error) {
	url := NormalizeURL(req.URL)
	started := time.Now()

	tag, pol, bundle, err := s.Prepare(url)
	if err != nil {
		return "", nil, err
	}

	cfg, candidates := BuildConfig(pol, bundle, Overrides{
		Format:    req.Format,
		Quality:   req.Quality,
		AudioOnly: req.AudioOnly,
		Subtitles: req.Subtitles,
	})

	stem := s.scratchStem()
	cfg.OutputPath = stem + ".%(ext)s"
	cfg.Quiet = !s.debug

	s.metrics.RecordDownloadStart(string(tag))

	outcome := s.executor.Execute(ctx, url, cfg, candidates)
	if outcome.State != Succeeded {
		s.materializer.Discard(stem)
		s.metrics.RecordDownloadFailure(string(tag), outcome.Attempts)
		return "", nil, errors.ErrExtractionFailed.WithCause(outcome.LastErr).WithDetails(string(tag))
	}

	path, size, err := s.materializer.Stat(stem)
	if err != nil {
		s.materializer.Discard(stem)
		s.metrics.RecordDownloadFailure(string(tag), outcome.Attempts)
		return "", nil, err
	}

	s.metrics.RecordDownloadSuccess(string(tag), outcome.Attempts, time.Since(started), size)

	return path, &Result{
		Platform: tag,
		Format:   outcome.Candidate,
		Attempts: outcome.Attempts,
		Metadata: outcome.Metadata,
	}, nil
}

// Cleanup removes every scratch file sharing a produced file's stem
func (s *Service) Cleanup(path string) {
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	s.materializer.Discard(stem)
}

// Extract fetches metadata without downloading. Cached results are
// served when available; concurrent fetches for one URL are coalesced.
func (s *Service) Extract(ctx context.Context, rawURL string) (*types.MediaMetadata, error) {
	url := NormalizeURL(rawURL)

	tag, pol, bundle, err := s.Prepare(url)
	if err != nil {
		return nil, err
	}

	if s.metadataCache != nil {
		if cached, cacheErr := s.metadataCache.GetMetadata(ctx, url); cacheErr == nil {
			s.logger.Debug("Metadata served from cache", zap.String("url", url))
			return cached, nil
		}
	}

	cfg, _ := BuildConfig(pol, bundle, Overrides{})

	metadata, shared, err := s.flight.Do(ctx, url, func() (*types.MediaMetadata, error) {
		return s.invoker.ExtractMetadata(ctx, url, cfg)
	})
	if err != nil {
		return nil, errors.ErrExtractionFailed.WithCause(err).WithDetails(string(tag))
	}
	if metadata == nil {
		return nil, errors.ErrExtractionFailed.WithDetails(string(tag))
	}

	metadata.Platform = string(tag)

	if s.metadataCache != nil && !shared {
		if cacheErr := s.metadataCache.SetMetadata(ctx, url, metadata); cacheErr != nil {
			s.logger.Debug("Metadata cache write failed", zap.Error(cacheErr))
		}
	}

	return metadata, nil
}

// Search runs a YouTube search. No credential gate: flat-playlist
// search works anonymously.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	results, err := s.invoker.Search(ctx, query, limit, extractor.DownloadConfig{})
	if err != nil {
		return nil, errors.ErrExtractionFailed.WithCause(err).WithDetails("search")
	}
	return results, nil
}

func (s *Service) scratchStem() string {
	return filepath.Join(s.tempDir, uuid.NewString())
}
