package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"
)

// FFmpeg wraps ffmpeg-go for post-processing job artifacts
type FFmpeg struct {
	binaryPath string
	timeout    time.Duration
	logger     *zap.Logger
}

// NewFFmpeg creates a new FFmpeg wrapper
func NewFFmpeg(binaryPath string, timeout time.Duration, logger *zap.Logger) *FFmpeg {
	return &FFmpeg{
		binaryPath: binaryPath,
		timeout:    timeout,
		logger:     logger,
	}
}

// Remux rewrites the container without re-encoding, e.g. webm into mp4.
// FFmpeg cannot edit in place, so a same-extension remux writes to a
// suffixed path.
func (f *FFmpeg) Remux(ctx context.Context, inputPath, container string) (string, error) {
	if strings.TrimSpace(container) == "" {
		return "", fmt.Errorf("remux container is required")
	}

	ext := container
	if ext[0] != '.' {
		ext = "." + ext
	}

	outputPath := changeExtension(inputPath, ext)
	if strings.EqualFold(filepath.Clean(inputPath), filepath.Clean(outputPath)) {
		outputPath = appendSuffix(inputPath, "_remuxed")
	}

	f.logger.Info("Remuxing media",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
	)

	err := ffmpeg.Input(inputPath).
		Output(outputPath, ffmpeg.KwArgs{
			"c":        "copy",
			"movflags": "+faststart",
		}).
		OverWriteOutput().
		ErrorToStdOut().
		SetFfmpegPath(f.binaryPath).
		Run()

	if err != nil {
		return "", fmt.Errorf("remux failed: %w", err)
	}

	return outputPath, nil
}

// ExtractAudio pulls the audio track out of a downloaded video
func (f *FFmpeg) ExtractAudio(ctx context.Context, inputPath, format, bitrate string) (string, error) {
	if format == "" {
		format = "mp3"
	}
	outputPath := changeExtension(inputPath, "."+format)

	f.logger.Info("Extracting audio",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.String("format", format),
	)

	kwargs := ffmpeg.KwArgs{
		"vn":     "", // No video
		"acodec": audioCodecFor(format),
	}
	if bitrate != "" {
		kwargs["audio_bitrate"] = bitrate
	}

	err := ffmpeg.Input(inputPath).
		Output(outputPath, kwargs).
		OverWriteOutput().
		ErrorToStdOut().
		SetFfmpegPath(f.binaryPath).
		Run()

	if err != nil {
		return "", fmt.Errorf("audio extraction failed: %w", err)
	}

	return outputPath, nil
}

// audioCodecFor maps an audio container to its FFmpeg encoder
func audioCodecFor(format string) string {
	switch format {
	case "mp3":
		return "libmp3lame"
	case "aac":
		return "aac"
	case "flac":
		return "flac"
	case "opus":
		return "libopus"
	case "wav":
		return "pcm_s16le"
	default:
		return "copy"
	}
}

// changeExtension replaces the file extension
func changeExtension(path, newExt string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	name := base[:len(base)-len(filepath.Ext(base))]

	return filepath.Join(dir, name+newExt)
}

// appendSuffix adds a suffix before the extension
func appendSuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]

	return base + suffix + ext
}
