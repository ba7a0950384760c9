package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects download pipeline counters
type Metrics struct {
	// Request metrics
	TotalRequests       atomic.Uint64
	SuccessfulDownloads atomic.Uint64
	FailedDownloads     atomic.Uint64
	ActiveDownloads     atomic.Int64
	AuthRejections      atomic.Uint64

	// Fallback metrics. FallbackAttempts counts every extractor
	// invocation; FallbackRecoveries counts downloads that needed more
	// than one candidate before succeeding.
	FallbackAttempts   atomic.Uint64
	FallbackRecoveries atomic.Uint64

	// Volume metrics
	TotalDownloadedBytes atomic.Uint64
	LastDownloadDuration atomic.Int64 // microseconds

	// System metrics
	StartedAt time.Time

	// Per-platform metrics
	platformStats sync.Map // platform -> *PlatformStats
}

// PlatformStats tracks counters per platform tag
type PlatformStats struct {
	TotalDownloads      atomic.Uint64
	SuccessfulDownloads atomic.Uint64
	FailedDownloads     atomic.Uint64
	AuthRejections      atomic.Uint64
}

// Global metrics instance
var globalMetrics *Metrics

func init() {
	globalMetrics = &Metrics{
		StartedAt: time.Now(),
	}
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// IncrementRequests increments the total request counter
func (m *Metrics) IncrementRequests() {
	m.TotalRequests.Add(1)
}

// RecordDownloadStart marks a download in flight
func (m *Metrics) RecordDownloadStart(platform string) {
	m.ActiveDownloads.Add(1)
	m.stats(platform).TotalDownloads.Add(1)
}

// RecordDownloadSuccess records a completed download with its attempt
// count from the candidate walk
func (m *Metrics) RecordDownloadSuccess(platform string, attempts int, duration time.Duration, sizeBytes int64) {
	m.SuccessfulDownloads.Add(1)
	m.ActiveDownloads.Add(-1)
	m.TotalDownloadedBytes.Add(uint64(sizeBytes))
	m.LastDownloadDuration.Store(duration.Microseconds())

	m.FallbackAttempts.Add(uint64(attempts))
	if attempts > 1 {
		m.FallbackRecoveries.Add(1)
	}

	m.stats(platform).SuccessfulDownloads.Add(1)
}

// RecordDownloadFailure records an exhausted or aborted download
func (m *Metrics) RecordDownloadFailure(platform string, attempts int) {
	m.FailedDownloads.Add(1)
	m.ActiveDownloads.Add(-1)
	m.FallbackAttempts.Add(uint64(attempts))

	m.stats(platform).FailedDownloads.Add(1)
}

// RecordAuthRejection records a request refused before the extractor
// ever ran because credentials were missing
func (m *Metrics) RecordAuthRejection(platform string) {
	m.AuthRejections.Add(1)
	m.stats(platform).AuthRejections.Add(1)
}

func (m *Metrics) stats(platform string) *PlatformStats {
	statsInterface, _ := m.platformStats.LoadOrStore(platform, &PlatformStats{})
	return statsInterface.(*PlatformStats)
}

// GetSnapshot returns the current metrics snapshot
func (m *Metrics) GetSnapshot() map[string]interface{} {
	uptime := time.Since(m.StartedAt)

	total := m.SuccessfulDownloads.Load() + m.FailedDownloads.Load()
	successRate := float64(0)
	if total > 0 {
		successRate = float64(m.SuccessfulDownloads.Load()) / float64(total) * 100
	}

	return map[string]interface{}{
		"uptime_seconds":         int64(uptime.Seconds()),
		"total_requests":         m.TotalRequests.Load(),
		"successful_downloads":   m.SuccessfulDownloads.Load(),
		"failed_downloads":       m.FailedDownloads.Load(),
		"active_downloads":       m.ActiveDownloads.Load(),
		"auth_rejections":        m.AuthRejections.Load(),
		"success_rate":           successRate,
		"fallback_attempts":      m.FallbackAttempts.Load(),
		"fallback_recoveries":    m.FallbackRecoveries.Load(),
		"total_downloaded_bytes": m.TotalDownloadedBytes.Load(),
		"last_download_ms":       m.LastDownloadDuration.Load() / 1000,
		"platforms":              m.platformSnapshot(),
	}
}

func (m *Metrics) platformSnapshot() map[string]interface{} {
	platforms := make(map[string]interface{})

	m.platformStats.Range(func(key, value interface{}) bool {
		platform := key.(string)
		stats := value.(*PlatformStats)

		total := stats.TotalDownloads.Load()
		successRate := float64(0)
		if total > 0 {
			successRate = float64(stats.SuccessfulDownloads.Load()) / float64(total) * 100
		}

		platforms[platform] = map[string]interface{}{
			"total_downloads":      total,
			"successful_downloads": stats.SuccessfulDownloads.Load(),
			"failed_downloads":     stats.FailedDownloads.Load(),
			"auth_rejections":      stats.AuthRejections.Load(),
			"success_rate":         successRate,
		}

		return true
	})

	return platforms
}
