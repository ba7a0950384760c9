package types

import "time"

// DownloadRequest represents a synchronous download request
type DownloadRequest struct {
	URL       string   `json:"url" validate:"required,url"`
	Format    string   `json:"format,omitempty"`     // yt-dlp format selector, replaces platform defaults
	Quality   string   `json:"quality,omitempty"`    // 1080p, 720p, 480p, best
	AudioOnly bool     `json:"audio_only,omitempty"` // Extract audio track as mp3
	Subtitles []string `json:"subtitles,omitempty"`  // ["en", "pt"]
}

// ExtractRequest asks for metadata without downloading
type ExtractRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// MediaMetadata contains information about the extracted media
type MediaMetadata struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Duration    int           `json:"duration"` // seconds
	Uploader    string        `json:"uploader,omitempty"`
	UploadDate  string        `json:"upload_date,omitempty"`
	ViewCount   int64         `json:"view_count,omitempty"`
	Thumbnail   string        `json:"thumbnail,omitempty"`
	Platform    string        `json:"platform"` // youtube, tiktok, instagram, twitter, generic
	Width       int           `json:"width,omitempty"`
	Height      int           `json:"height,omitempty"`
	Ext         string        `json:"ext,omitempty"`
	DownloadURL string        `json:"download_url,omitempty"` // Direct media URL from the extractor
	Formats     []FormatEntry `json:"formats,omitempty"`
}

// FormatEntry represents a single format option reported by yt-dlp
type FormatEntry struct {
	FormatID   string `json:"format_id"`
	Ext        string `json:"ext"`
	Resolution string `json:"resolution,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Filesize   int64  `json:"filesize,omitempty"`
	Bitrate    int    `json:"bitrate,omitempty"`
	VideoCodec string `json:"vcodec,omitempty"`
	AudioCodec string `json:"acodec,omitempty"`
	Note       string `json:"note,omitempty"`
}

// SearchResult is a single entry from a flat-playlist search
type SearchResult struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Duration int    `json:"duration,omitempty"`
	Uploader string `json:"uploader,omitempty"`
}

// DownloadJob represents a deferred download tracked in Redis
type DownloadJob struct {
	ID        string          `json:"id"`
	Request   DownloadRequest `json:"request"`
	Platform  string          `json:"platform"`
	Status    JobStatus       `json:"status"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Result    *JobResult      `json:"result,omitempty"`
}

// JobStatus represents the current state of a deferred job
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// JobResult contains the output of a completed download job
type JobResult struct {
	DownloadURL string    `json:"download_url"` // Presigned S3 URL or local file path
	Filename    string    `json:"filename"`
	SizeBytes   int64     `json:"size_bytes"`
	MIMEType    string    `json:"mime_type"`
	Format      string    `json:"format,omitempty"` // Format candidate that produced the file
	Attempts    int       `json:"attempts"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// HistoryItem records a completed download for the recent-activity view
type HistoryItem struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Platform  string `json:"platform"`
	Format    string `json:"format"`
	SizeBytes int64  `json:"size_bytes"`
	Duration  int    `json:"duration,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
