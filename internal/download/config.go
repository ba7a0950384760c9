package download

import (
	"fmt"
	"strings"

	"medfetch/internal/credentials"
	"medfetch/internal/extractor"
	"medfetch/internal/platform"
)

// Overrides are the caller-supplied knobs from a download request.
// Anything set here wins over both platform policy and credentials.
type Overrides struct {
	Format    string   // Explicit yt-dlp selector, replaces the candidate list
	Quality   string   // 1080p, 720p, 480p; shapes a height-capped candidate list
	AudioOnly bool     // Extract the audio track as mp3
	Subtitles []string // Subtitle languages to fetch alongside
	UserAgent string
	Proxy     string
}

// BuildConfig assembles the extractor configuration and the ordered
// format candidate list for one request. Pure function: platform policy
// first, credential bundle layered on, caller overrides last. The
// per-attempt Format and the OutputPath are filled in by the caller.
func BuildConfig(pol platform.Policy, bundle credentials.Bundle, ov Overrides) (extractor.DownloadConfig, []string) {
	cfg := extractor.DownloadConfig{
		NoPlaylist:    true,
		CookieFile:    bundle.CookiePath,
		UserAgent:     bundle.UserAgent,
		Proxy:         bundle.Proxy,
		Headers:       joinHeaders(bundle.Headers),
		ExtractorArgs: pol.ExtractorArgs,
		MergeFormat:   pol.MergeFormat,
	}

	if ov.UserAgent != "" {
		cfg.UserAgent = ov.UserAgent
	}
	if ov.Proxy != "" {
		cfg.Proxy = ov.Proxy
	}
	if ov.AudioOnly {
		cfg.ExtractAudio = true
		cfg.AudioFormat = "mp3"
		cfg.MergeFormat = ""
	}
	if len(ov.Subtitles) > 0 {
		cfg.SubtitleLangs = ov.Subtitles
	}

	return cfg, candidatesFor(pol, ov)
}

// candidatesFor picks the ordered format candidates for a request. An
// explicit format override replaces the whole list with that single
// selector; everything else keeps a list ending in "best".
func candidatesFor(pol platform.Policy, ov Overrides) []string {
	if ov.Format != "" {
		return []string{ov.Format}
	}

	if ov.AudioOnly {
		return []string{"bestaudio/best", "best"}
	}

	if height := qualityHeight(ov.Quality); height > 0 {
		return []string{
			fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]", height, height),
			"best",
		}
	}

	return pol.FormatCandidates
}

// qualityHeight maps a quality label to a pixel height cap. Zero means
// no cap, fall through to the platform candidates.
func qualityHeight(quality string) int {
	switch strings.ToLower(quality) {
	case "4k", "2160p":
		return 2160
	case "1440p":
		return 1440
	case "1080p":
		return 1080
	case "720p":
		return 720
	case "480p":
		return 480
	case "360p":
		return 360
	default:
		return 0
	}
}

// joinHeaders renders bundle headers in yt-dlp's Name:Value form
func joinHeaders(headers []credentials.Header) []string {
	if len(headers) == 0 {
		return nil
	}
	joined := make([]string, 0, len(headers))
	for _, h := range headers {
		joined = append(joined, fmt.Sprintf("%s:%s", h.Name, h.Value))
	}
	return joined
}

// NormalizeURL trims whitespace and strips the leading "=" that
// spreadsheet copy-paste tends to prepend
func NormalizeURL(rawURL string) string {
	url := strings.TrimSpace(rawURL)
	if strings.HasPrefix(url, "=") {
		url = strings.TrimSpace(strings.TrimPrefix(url, "="))
	}
	return url
}
