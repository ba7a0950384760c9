package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScratchSweeper periodically removes orphaned scratch files from the
// download temp directory. The pipeline removes its own files on every
// path; the sweeper catches what a crashed or killed process left
// behind.
type ScratchSweeper struct {
	tempDir   string
	maxAge    time.Duration
	interval  time.Duration
	logger    *zap.Logger
	closeCh   chan struct{}
	stoppedCh chan struct{}
}

// NewScratchSweeper creates a sweeper. maxAge should comfortably exceed
// the extractor timeout so in-flight downloads are never swept.
func NewScratchSweeper(tempDir string, maxAge, interval time.Duration, logger *zap.Logger) *ScratchSweeper {
	return &ScratchSweeper{
		tempDir:   tempDir,
		maxAge:    maxAge,
		interval:  interval,
		logger:    logger,
		closeCh:   make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start begins the sweep goroutine
func (s *ScratchSweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop stops the sweeper and waits for the current sweep to finish
func (s *ScratchSweeper) Stop() {
	close(s.closeCh)
	<-s.stoppedCh
}

func (s *ScratchSweeper) run(ctx context.Context) {
	defer close(s.stoppedCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run once at startup to clear leftovers from the previous process
	s.Sweep()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.closeCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Sweep removes scratch files older than maxAge. Only files whose name
// starts with a UUID stem are touched; the temp directory may be shared
// with files the pipeline does not own.
func (s *ScratchSweeper) Sweep() {
	cutoff := time.Now().Add(-s.maxAge)

	var deletedCount int
	var deletedBytes int64

	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		s.logger.Warn("Scratch sweep failed to read temp dir",
			zap.String("dir", s.tempDir),
			zap.Error(err),
		)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !isScratchName(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(s.tempDir, entry.Name())
		size := info.Size()
		if err := os.Remove(path); err != nil {
			s.logger.Warn("Failed to remove orphaned scratch file",
				zap.String("file", path),
				zap.Error(err),
			)
			continue
		}

		s.logger.Debug("Removed orphaned scratch file",
			zap.String("file", path),
			zap.Int64("size", size),
		)
		deletedCount++
		deletedBytes += size
	}

	if deletedCount > 0 {
		s.logger.Info("Scratch sweep completed",
			zap.String("dir", s.tempDir),
			zap.Int("deleted", deletedCount),
			zap.Int64("freed_bytes", deletedBytes),
		)
	}
}

// isScratchName reports whether a file name carries a UUID stem, the
// naming every scratch file in the pipeline shares
func isScratchName(name string) bool {
	if len(name) < 36 {
		return false
	}
	_, err := uuid.Parse(name[:36])
	return err == nil
}
