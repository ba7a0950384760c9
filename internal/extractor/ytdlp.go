package extractor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"medfetch/internal/pool"
	"medfetch/internal/types"
)

// YtDlp wraps the yt-dlp binary. The binary is treated as opaque:
// arguments in, files and JSON out. No library linkage.
type YtDlp struct {
	binaryPath string
	ffmpegPath string
	timeout    time.Duration
	logger     *zap.Logger
}

// NewYtDlp creates a new yt-dlp wrapper
func NewYtDlp(binaryPath, ffmpegPath string, timeout time.Duration, logger *zap.Logger) *YtDlp {
	return &YtDlp{
		binaryPath: binaryPath,
		ffmpegPath: ffmpegPath,
		timeout:    timeout,
		logger:     logger,
	}
}

// DownloadConfig is a fully assembled invocation: platform defaults,
// credentials, and caller overrides already merged. One config maps to
// exactly one yt-dlp run with one format selector.
type DownloadConfig struct {
	OutputPath    string   // -o template, usually <dir>/<id>.%(ext)s
	Format        string   // -f selector for this attempt
	Quiet         bool     // Suppress progress output
	CookieFile    string   // --cookies
	UserAgent     string   // --user-agent
	Proxy         string   // --proxy
	Headers       []string // --add-header, each "Name:Value"
	ExtractorArgs []string // --extractor-args, each "target:args"
	MergeFormat   string   // --merge-output-format
	ExtractAudio  bool     // -x
	AudioFormat   string   // --audio-format, mp3 by default when extracting
	AudioQuality  string   // --audio-quality
	SubtitleLangs []string // --sub-langs
	NoPlaylist    bool
	RateLimit     string // --limit-rate
}

// Download runs a single download attempt and returns whatever metadata
// yt-dlp printed for the item. A nil metadata with nil error means the
// download succeeded but no JSON line was captured.
func (y *YtDlp) Download(ctx context.Context, url string, cfg DownloadConfig) (*types.MediaMetadata, error) {
	args := y.buildDownloadArgs(url, cfg)

	y.logger.Debug("Starting yt-dlp download",
		zap.String("url", url),
		zap.String("format", cfg.Format),
		zap.Strings("args", args),
	)

	return y.run(ctx, args)
}

// ExtractMetadata fetches metadata for a URL without downloading. The
// config supplies credentials and extractor arguments; its output and
// format fields are ignored.
func (y *YtDlp) ExtractMetadata(ctx context.Context, url string, cfg DownloadConfig) (*types.MediaMetadata, error) {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--skip-download",
		"--print-json",
	}
	args = appendAuthArgs(args, cfg)
	args = append(args, url)

	output, err := y.execute(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("extract metadata: %w", err)
	}

	rawData, err := lastJSONObject(output)
	if err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}

	return parseMetadata(rawData), nil
}

// Search runs a flat-playlist YouTube search and returns up to limit
// entries. Search needs no cookies.
func (y *YtDlp) Search(ctx context.Context, query string, limit int, cfg DownloadConfig) ([]types.SearchResult, error) {
	if limit < 1 {
		limit = 1
	}

	args := []string{
		"--dump-single-json",
		"--flat-playlist",
		"--no-warnings",
	}
	args = appendAuthArgs(args, cfg)
	args = append(args, fmt.Sprintf("ytsearch%d:%s", limit, query))

	output, err := y.execute(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	rawData, err := lastJSONObject(output)
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}

	return parseSearchEntries(rawData), nil
}

// Version reports the yt-dlp binary version, used by the health probe
func (y *YtDlp) Version(ctx context.Context) (string, error) {
	output, err := y.execute(ctx, []string{"--version"})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// buildDownloadArgs constructs yt-dlp command arguments from a config
func (y *YtDlp) buildDownloadArgs(url string, cfg DownloadConfig) []string {
	args := []string{
		"--no-warnings",
		"-o", cfg.OutputPath,
	}

	if cfg.NoPlaylist {
		args = append(args, "--no-playlist")
	}

	if cfg.Quiet {
		args = append(args, "--quiet", "--no-progress")
	} else {
		args = append(args, "--progress", "--newline")
	}

	// Metadata for the downloaded item lands on stdout even in quiet mode
	args = append(args, "--print-json")

	// yt-dlp needs ffmpeg for merging separate video and audio streams
	if y.ffmpegPath != "" {
		args = append(args, "--ffmpeg-location", y.ffmpegPath)
	}

	if cfg.ExtractAudio {
		audioFormat := cfg.AudioFormat
		if audioFormat == "" {
			audioFormat = "mp3"
		}
		args = append(args, "-x", "--audio-format", audioFormat)
		if cfg.AudioQuality != "" {
			args = append(args, "--audio-quality", cfg.AudioQuality)
		}
	} else {
		if cfg.Format != "" {
			args = append(args, "-f", cfg.Format)
		}
		if cfg.MergeFormat != "" {
			args = append(args, "--merge-output-format", cfg.MergeFormat)
		}
	}

	if len(cfg.SubtitleLangs) > 0 {
		args = append(args,
			"--write-subs",
			"--write-auto-subs",
			"--sub-langs", strings.Join(cfg.SubtitleLangs, ","),
			"--convert-subs", "srt",
		)
	}

	if cfg.RateLimit != "" {
		args = append(args, "--limit-rate", cfg.RateLimit)
	}

	args = appendAuthArgs(args, cfg)
	args = append(args, url)

	return args
}

// appendAuthArgs adds the credential and extractor arguments shared by
// download, metadata, and search invocations
func appendAuthArgs(args []string, cfg DownloadConfig) []string {
	if cfg.CookieFile != "" {
		args = append(args, "--cookies", cfg.CookieFile)
	}
	if cfg.UserAgent != "" {
		args = append(args, "--user-agent", cfg.UserAgent)
	}
	if cfg.Proxy != "" {
		args = append(args, "--proxy", cfg.Proxy)
	}
	for _, header := range cfg.Headers {
		args = append(args, "--add-header", header)
	}
	for _, extractorArg := range cfg.ExtractorArgs {
		args = append(args, "--extractor-args", extractorArg)
	}
	return args
}

// run executes yt-dlp streaming both pipes, captures the metadata JSON
// line from stdout and keeps stderr for error reporting
func (y *YtDlp) run(ctx context.Context, args []string) (*types.MediaMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, y.binaryPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	var metadataJSON string
	var stderrBuf bytes.Buffer
	var mu sync.Mutex
	var wg sync.WaitGroup

	wg.Add(2)

	// stdout: capture the single-line item JSON
	go func() {
		defer wg.Done()
		scanBuf := pool.ScanBuffers.Get()
		defer pool.ScanBuffers.Put(scanBuf)
		scanner := bufio.NewScanner(stdout)
		// --print-json emits very large single-line objects
		scanner.Buffer(scanBuf, 10*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
				mu.Lock()
				metadataJSON = trimmed
				mu.Unlock()
			}
			y.logger.Debug("yt-dlp stdout", zap.String("line", line))
		}
	}()

	// stderr: keep for the failure message
	go func() {
		defer wg.Done()
		scanBuf := pool.ScanBuffers.Get()
		defer pool.ScanBuffers.Put(scanBuf)
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(scanBuf, 512*1024)
		for scanner.Scan() {
			line := scanner.Text()
			mu.Lock()
			stderrBuf.WriteString(line + "\n")
			mu.Unlock()
			y.logger.Debug("yt-dlp stderr", zap.String("line", line))
		}
	}()

	waitErr := cmd.Wait()
	wg.Wait()

	if waitErr != nil {
		errMsg := strings.TrimSpace(stderrBuf.String())
		y.logger.Warn("yt-dlp failed",
			zap.Error(waitErr),
			zap.String("stderr", errMsg),
		)
		if errMsg != "" {
			return nil, fmt.Errorf("yt-dlp: %w: %s", waitErr, lastLine(errMsg))
		}
		return nil, fmt.Errorf("yt-dlp: %w", waitErr)
	}

	if metadataJSON != "" {
		var rawData map[string]interface{}
		if err := json.Unmarshal([]byte(metadataJSON), &rawData); err == nil {
			return parseMetadata(rawData), nil
		}
	}

	return nil, nil
}

// execute runs yt-dlp and returns combined output
func (y *YtDlp) execute(ctx context.Context, args []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, y.binaryPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("yt-dlp: %w: %s", err, lastLine(strings.TrimSpace(string(output))))
	}

	return string(output), nil
}

// lastLine keeps errors readable when yt-dlp dumps many stderr lines
func lastLine(s string) string {
	if idx := strings.LastIndex(s, "\n"); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// lastJSONObject scans output bottom-up for the final JSON object line.
// yt-dlp mixes progress and warning lines into the same streams.
func lastJSONObject(output string) (map[string]interface{}, error) {
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "{") && strings.HasSuffix(line, "}") {
			var raw map[string]interface{}
			if err := json.Unmarshal([]byte(line), &raw); err == nil {
				return raw, nil
			}
		}
	}
	return nil, fmt.Errorf("no JSON object found in yt-dlp output")
}

// parseMetadata converts yt-dlp item JSON to MediaMetadata
func parseMetadata(data map[string]interface{}) *types.MediaMetadata {
	metadata := &types.MediaMetadata{}

	if title, ok := data["title"].(string); ok {
		metadata.Title = title
	}

	if description, ok := data["description"].(string); ok {
		metadata.Description = description
	}

	if duration, ok := data["duration"].(float64); ok {
		metadata.Duration = int(duration)
	}

	if uploader, ok := data["uploader"].(string); ok {
		metadata.Uploader = uploader
	}

	if uploadDate, ok := data["upload_date"].(string); ok {
		metadata.UploadDate = uploadDate
	}

	if viewCount, ok := data["view_count"].(float64); ok {
		metadata.ViewCount = int64(viewCount)
	}

	if thumbnail, ok := data["thumbnail"].(string); ok {
		metadata.Thumbnail = thumbnail
	}

	if width, ok := data["width"].(float64); ok {
		metadata.Width = int(width)
	}

	if height, ok := data["height"].(float64); ok {
		metadata.Height = int(height)
	}

	if ext, ok := data["ext"].(string); ok {
		metadata.Ext = ext
	}

	if directURL, ok := data["url"].(string); ok {
		metadata.DownloadURL = directURL
	}

	if formatsRaw, ok := data["formats"].([]interface{}); ok {
		metadata.Formats = make([]types.FormatEntry, 0, len(formatsRaw))
		for _, formatRaw := range formatsRaw {
			formatMap, ok := formatRaw.(map[string]interface{})
			if !ok {
				continue
			}
			metadata.Formats = append(metadata.Formats, parseFormatEntry(formatMap))
		}
	}

	return metadata
}

func parseFormatEntry(formatMap map[string]interface{}) types.FormatEntry {
	entry := types.FormatEntry{}

	if fid, ok := formatMap["format_id"].(string); ok {
		entry.FormatID = fid
	}
	if ext, ok := formatMap["ext"].(string); ok {
		entry.Ext = ext
	}
	if resolution, ok := formatMap["resolution"].(string); ok {
		entry.Resolution = resolution
	}
	if width, ok := formatMap["width"].(float64); ok {
		entry.Width = int(width)
	}
	if height, ok := formatMap["height"].(float64); ok {
		entry.Height = int(height)
	}
	if filesize, ok := formatMap["filesize"].(float64); ok {
		entry.Filesize = int64(filesize)
	}
	if bitrate, ok := formatMap["tbr"].(float64); ok {
		entry.Bitrate = int(bitrate)
	}
	if vcodec, ok := formatMap["vcodec"].(string); ok {
		entry.VideoCodec = vcodec
	}
	if acodec, ok := formatMap["acodec"].(string); ok {
		entry.AudioCodec = acodec
	}
	if note, ok := formatMap["format_note"].(string); ok {
		entry.Note = note
	}

	// Build a resolution label from height when yt-dlp omits it
	if entry.Resolution == "" && entry.Height > 0 {
		entry.Resolution = fmt.Sprintf("%dp", entry.Height)
	}

	return entry
}

// parseSearchEntries maps flat-playlist JSON entries to search results
func parseSearchEntries(data map[string]interface{}) []types.SearchResult {
	entriesRaw, ok := data["entries"].([]interface{})
	if !ok {
		return nil
	}

	results := make([]types.SearchResult, 0, len(entriesRaw))
	for _, entryRaw := range entriesRaw {
		entryMap, ok := entryRaw.(map[string]interface{})
		if !ok {
			continue
		}

		result := types.SearchResult{}
		if id, ok := entryMap["id"].(string); ok {
			result.ID = id
		}
		if title, ok := entryMap["title"].(string); ok {
			result.Title = title
		}
		if url, ok := entryMap["url"].(string); ok {
			result.URL = url
		}
		if result.URL == "" && result.ID != "" {
			result.URL = "https://www.youtube.com/watch?v=" + result.ID
		}
		if duration, ok := entryMap["duration"].(float64); ok {
			result.Duration = int(duration)
		}
		if uploader, ok := entryMap["uploader"].(string); ok {
			result.Uploader = uploader
		} else if channel, ok := entryMap["channel"].(string); ok {
			result.Uploader = channel
		}

		results = append(results, result)
	}

	return results
}
