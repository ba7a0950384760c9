package extractor

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestYtDlp() *YtDlp {
	return NewYtDlp("yt-dlp", "/usr/bin/ffmpeg", time.Minute, zap.NewNop())
}

// argValue returns the token following the first occurrence of flag
func argValue(args []string, flag string) (string, bool) {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}

func hasArg(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func TestBuildDownloadArgsVideo(t *testing.T) {
	y := newTestYtDlp()
	cfg := DownloadConfig{
		OutputPath:    "/tmp/abc.%(ext)s",
		Format:        "bestvideo+bestaudio/best",
		Quiet:         true,
		NoPlaylist:    true,
		CookieFile:    "/cookies/cookies.txt",
		UserAgent:     "agent/1.0",
		Proxy:         "http://proxy:8080",
		Headers:       []string{"Referer:https://example.com/"},
		ExtractorArgs: []string{"youtube:player_client=web,android"},
		MergeFormat:   "mp4",
	}

	args := y.buildDownloadArgs("https://youtu.be/abc", cfg)

	if got, _ := argValue(args, "-o"); got != "/tmp/abc.%(ext)s" {
		t.Errorf("-o = %q", got)
	}
	if got, _ := argValue(args, "-f"); got != "bestvideo+bestaudio/best" {
		t.Errorf("-f = %q", got)
	}
	if got, _ := argValue(args, "--merge-output-format"); got != "mp4" {
		t.Errorf("--merge-output-format = %q", got)
	}
	if got, _ := argValue(args, "--cookies"); got != "/cookies/cookies.txt" {
		t.Errorf("--cookies = %q", got)
	}
	if got, _ := argValue(args, "--user-agent"); got != "agent/1.0" {
		t.Errorf("--user-agent = %q", got)
	}
	if got, _ := argValue(args, "--proxy"); got != "http://proxy:8080" {
		t.Errorf("--proxy = %q", got)
	}
	if got, _ := argValue(args, "--add-header"); got != "Referer:https://example.com/" {
		t.Errorf("--add-header = %q", got)
	}
	if got, _ := argValue(args, "--extractor-args"); got != "youtube:player_client=web,android" {
		t.Errorf("--extractor-args = %q", got)
	}
	if got, _ := argValue(args, "--ffmpeg-location"); got != "/usr/bin/ffmpeg" {
		t.Errorf("--ffmpeg-location = %q", got)
	}
	if !hasArg(args, "--no-playlist") {
		t.Error("--no-playlist missing")
	}
	if !hasArg(args, "--quiet") || !hasArg(args, "--no-progress") {
		t.Error("quiet mode flags missing")
	}
	if !hasArg(args, "--print-json") {
		t.Error("--print-json missing, metadata capture depends on it")
	}
	if args[len(args)-1] != "https://youtu.be/abc" {
		t.Errorf("url must be the final argument, got %q", args[len(args)-1])
	}
}

func TestBuildDownloadArgsAudioExtraction(t *testing.T) {
	y := newTestYtDlp()
	cfg := DownloadConfig{
		OutputPath:   "/tmp/abc.%(ext)s",
		Format:       "bestaudio/best",
		ExtractAudio: true,
		AudioQuality: "192k",
	}

	args := y.buildDownloadArgs("https://youtu.be/abc", cfg)

	if !hasArg(args, "-x") {
		t.Error("-x missing")
	}
	if got, _ := argValue(args, "--audio-format"); got != "mp3" {
		t.Errorf("--audio-format = %q, want the mp3 default", got)
	}
	if got, _ := argValue(args, "--audio-quality"); got != "192k" {
		t.Errorf("--audio-quality = %q", got)
	}
	// Audio extraction replaces format selection entirely
	if hasArg(args, "-f") {
		t.Error("-f must not be passed alongside -x")
	}
	if hasArg(args, "--merge-output-format") {
		t.Error("--merge-output-format must not be passed alongside -x")
	}
}

func TestBuildDownloadArgsProgressMode(t *testing.T) {
	y := newTestYtDlp()
	args := y.buildDownloadArgs("https://youtu.be/abc", DownloadConfig{OutputPath: "/tmp/a.%(ext)s"})

	if hasArg(args, "--quiet") {
		t.Error("--quiet present without Quiet set")
	}
	if !hasArg(args, "--progress") || !hasArg(args, "--newline") {
		t.Error("progress flags missing in debug mode")
	}
}

func TestBuildDownloadArgsSubtitles(t *testing.T) {
	y := newTestYtDlp()
	cfg := DownloadConfig{
		OutputPath:    "/tmp/a.%(ext)s",
		SubtitleLangs: []string{"en", "pt"},
	}

	args := y.buildDownloadArgs("https://youtu.be/abc", cfg)

	if got, _ := argValue(args, "--sub-langs"); got != "en,pt" {
		t.Errorf("--sub-langs = %q", got)
	}
	if !hasArg(args, "--write-subs") || !hasArg(args, "--write-auto-subs") {
		t.Error("subtitle write flags missing")
	}
	if got, _ := argValue(args, "--convert-subs"); got != "srt" {
		t.Errorf("--convert-subs = %q", got)
	}
}

func TestBuildDownloadArgsRateLimit(t *testing.T) {
	y := newTestYtDlp()
	args := y.buildDownloadArgs("https://youtu.be/abc", DownloadConfig{
		OutputPath: "/tmp/a.%(ext)s",
		RateLimit:  "2M",
	})

	if got, _ := argValue(args, "--limit-rate"); got != "2M" {
		t.Errorf("--limit-rate = %q", got)
	}
}

func TestLastLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"single", "single"},
		{"first\nsecond", "second"},
		{"first\nsecond\n", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := lastLine(tt.in); got != tt.want {
			t.Errorf("lastLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLastJSONObject(t *testing.T) {
	output := `[download] Destination: /tmp/a.mp4
[download] 100% of 1.00MiB
{"title": "wrong one", "id": "1"}
{"title": "clip", "id": "2"}
[Merger] Merging formats`

	data, err := lastJSONObject(output)
	if err != nil {
		t.Fatalf("lastJSONObject() error: %v", err)
	}
	if data["title"] != "clip" {
		t.Errorf("title = %v, want the final JSON line", data["title"])
	}
}

func TestLastJSONObjectNoJSON(t *testing.T) {
	if _, err := lastJSONObject("[download] nothing here\n"); err == nil {
		t.Error("lastJSONObject() expected an error")
	}
}

func TestParseMetadata(t *testing.T) {
	data := map[string]interface{}{
		"title":       "My Clip",
		"description": "about things",
		"duration":    float64(93),
		"uploader":    "someone",
		"upload_date": "20250101",
		"view_count":  float64(1234567),
		"thumbnail":   "https://i.example/t.jpg",
		"width":       float64(1920),
		"height":      float64(1080),
		"ext":         "mp4",
		"url":         "https://cdn.example/v.mp4",
		"formats": []interface{}{
			map[string]interface{}{
				"format_id": "137",
				"ext":       "mp4",
				"height":    float64(1080),
				"vcodec":    "avc1",
				"acodec":    "none",
				"tbr":       float64(4400),
			},
		},
	}

	m := parseMetadata(data)

	if m.Title != "My Clip" || m.Duration != 93 || m.ViewCount != 1234567 {
		t.Errorf("core fields wrong: %+v", m)
	}
	if m.Width != 1920 || m.Height != 1080 || m.Ext != "mp4" {
		t.Errorf("dimension fields wrong: %+v", m)
	}
	if m.DownloadURL != "https://cdn.example/v.mp4" {
		t.Errorf("DownloadURL = %q", m.DownloadURL)
	}
	if len(m.Formats) != 1 {
		t.Fatalf("formats = %d, want 1", len(m.Formats))
	}
	f := m.Formats[0]
	if f.FormatID != "137" || f.Bitrate != 4400 {
		t.Errorf("format entry wrong: %+v", f)
	}
	// Resolution label synthesized from height
	if f.Resolution != "1080p" {
		t.Errorf("Resolution = %q, want 1080p", f.Resolution)
	}
}

func TestParseSearchEntries(t *testing.T) {
	data := map[string]interface{}{
		"entries": []interface{}{
			map[string]interface{}{
				"id":       "abc123",
				"title":    "First",
				"duration": float64(60),
				"channel":  "SomeChannel",
			},
			map[string]interface{}{
				"id":    "def456",
				"title": "Second",
				"url":   "https://www.youtube.com/watch?v=def456",
			},
			"not an object",
		},
	}

	results := parseSearchEntries(data)
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}

	if results[0].URL != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("URL = %q, want the one built from the id", results[0].URL)
	}
	if results[0].Uploader != "SomeChannel" {
		t.Errorf("Uploader = %q, want the channel fallback", results[0].Uploader)
	}
	if results[1].URL != "https://www.youtube.com/watch?v=def456" {
		t.Errorf("URL = %q", results[1].URL)
	}
}

func TestParseSearchEntriesNoEntries(t *testing.T) {
	if got := parseSearchEntries(map[string]interface{}{}); got != nil {
		t.Errorf("parseSearchEntries() = %v, want nil", got)
	}
}
