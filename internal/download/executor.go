package download

import (
	"context"

	"go.uber.org/zap"

	"medfetch/internal/extractor"
	"medfetch/internal/types"
)

// Invoker is the extractor surface the download pipeline depends on.
// *extractor.YtDlp satisfies it; tests substitute fakes.
type Invoker interface {
	Download(ctx context.Context, url string, cfg extractor.DownloadConfig) (*types.MediaMetadata, error)
	ExtractMetadata(ctx context.Context, url string, cfg extractor.DownloadConfig) (*types.MediaMetadata, error)
	Search(ctx context.Context, query string, limit int, cfg extractor.DownloadConfig) ([]types.SearchResult, error)
}

// State is the terminal state of a candidate walk
type State string

const (
	Succeeded State = "succeeded"
	Exhausted State = "exhausted"
)

// Outcome reports how the candidate walk ended. On success, Candidate
// holds the selector that won and Attempts how many were tried. On
// exhaustion, LastErr carries the error from the final attempt only;
// earlier failures are logged, not kept.
type Outcome struct {
	State     State
	Attempts  int
	Candidate string
	Metadata  *types.MediaMetadata
	LastErr   error
}

// Executor walks format candidates in order, invoking the extractor
// once per candidate and stopping at the first success. This is the
// only retry surface in the pipeline: no backoff, no jitter, no
// re-running a candidate that already failed.
type Executor struct {
	invoker Invoker
	logger  *zap.Logger
}

// NewExecutor creates a fallback executor
func NewExecutor(invoker Invoker, logger *zap.Logger) *Executor {
	return &Executor{
		invoker: invoker,
		logger:  logger,
	}
}

// Execute runs the candidate walk. The candidate list must be non-empty;
// policy validation guarantees that for platform-derived lists.
func (e *Executor) Execute(ctx context.Context, url string, cfg extractor.DownloadConfig, candidates []string) Outcome {
	outcome := Outcome{State: Exhausted}

	for i, candidate := range candidates {
		attempt := cfg
		attempt.Format = candidate

		e.logger.Info("Trying format candidate",
			zap.String("url", url),
			zap.String("format", candidate),
			zap.Int("attempt", i+1),
			zap.Int("candidates", len(candidates)),
		)

		metadata, err := e.invoker.Download(ctx, url, attempt)
		outcome.Attempts = i + 1

		if err == nil {
			outcome.State = Succeeded
			outcome.Candidate = candidate
			outcome.Metadata = metadata
			return outcome
		}

		outcome.LastErr = err
		e.logger.Warn("Format candidate failed",
			zap.String("url", url),
			zap.String("format", candidate),
			zap.Int("attempt", i+1),
			zap.Error(err),
		)

		// Once the context is gone every remaining attempt fails the
		// same way, so stop walking.
		if ctx.Err() != nil {
			break
		}
	}

	return outcome
}
