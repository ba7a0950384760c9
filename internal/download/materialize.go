package download

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"medfetch/internal/errors"
)

// Artifact is a fully materialized download held in memory
type Artifact struct {
	Data     []byte
	MIMEType string
	Filename string
	Size     int64
}

// Materializer turns a scratch stem into an in-memory artifact and
// guarantees the scratch files are gone afterwards
type Materializer struct {
	logger *zap.Logger
}

// NewMaterializer creates a materializer
func NewMaterializer(logger *zap.Logger) *Materializer {
	return &Materializer{logger: logger}
}

// Materialize locates the file the extractor produced under the scratch
// stem, reads it fully, and removes every file sharing the stem. Removal
// happens on every path: success, no output, and read failure alike.
func (m *Materializer) Materialize(stem string) (*Artifact, error) {
	defer m.Discard(stem)

	path := findProducedFile(stem)
	if path == "" {
		return nil, errors.ErrNoOutput.WithDetails("no media file at scratch path")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ErrReadFailure.WithCause(err)
	}

	filename := filepath.Base(path)
	return &Artifact{
		Data:     data,
		MIMEType: MIMEForFilename(filename),
		Filename: filename,
		Size:     int64(len(data)),
	}, nil
}

// Stat locates the produced file without reading or removing it, for
// the job pipeline which uploads from disk instead of buffering
func (m *Materializer) Stat(stem string) (string, int64, error) {
	path := findProducedFile(stem)
	if path == "" {
		return "", 0, errors.ErrNoOutput.WithDetails("no media file at scratch path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", 0, errors.ErrReadFailure.WithCause(err)
	}
	return path, info.Size(), nil
}

// Discard removes every scratch file sharing the stem, including
// partials and sidecars. Failures are logged, never surfaced.
func (m *Materializer) Discard(stem string) {
	matches, err := filepath.Glob(stem + "*")
	if err != nil {
		return
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("Failed to remove scratch file",
				zap.String("path", match),
				zap.Error(err),
			)
		}
	}
}

// findProducedFile resolves the scratch stem to the downloaded media
// file. yt-dlp substitutes the real extension for %(ext)s and merge or
// audio extraction may change it again, so the stem is globbed and the
// largest plausible media file wins.
func findProducedFile(stem string) string {
	// Prefer a merged, clean output name when present
	preferred := []string{
		stem + ".mp4",
		stem + ".mkv",
		stem + ".webm",
		stem + ".mp3",
		stem + ".m4a",
	}
	for _, p := range preferred {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}

	matches, err := filepath.Glob(stem + ".*")
	if err != nil || len(matches) == 0 {
		return ""
	}

	var bestPath string
	var bestSize int64 = -1
	for _, candidate := range matches {
		name := strings.ToLower(filepath.Base(candidate))

		// Skip temporary/partial files and sidecars
		if strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") {
			continue
		}
		switch filepath.Ext(name) {
		case ".json", ".srt", ".vtt", ".ass", ".lrc":
			continue
		}

		info, statErr := os.Stat(candidate)
		if statErr != nil || info.IsDir() {
			continue
		}
		if info.Size() > bestSize {
			bestSize = info.Size()
			bestPath = candidate
		}
	}

	return bestPath
}

// MIMEForFilename maps a produced filename to the response content
// type. Audio extraction yields mp3; everything else is served as mp4.
func MIMEForFilename(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".mp3") {
		return "audio/mpeg"
	}
	return "video/mp4"
}
