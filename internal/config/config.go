package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// API Configuration
	API APIConfig

	// Extractor Configuration
	Extractor ExtractorConfig

	// Credentials Configuration
	Credentials CredentialsConfig

	// Platform policy Configuration
	Platforms PlatformsConfig

	// Redis Configuration
	Redis RedisConfig

	// Cache Configuration
	Cache CacheConfig

	// Queue Configuration
	Queue QueueConfig

	// Storage Configuration
	Storage StorageConfig

	// Cleanup Configuration
	Cleanup CleanupConfig

	// Logging Configuration
	Logger LoggerConfig
}

// APIConfig holds API server configuration
type APIConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	APIKeys         []string // Empty list disables authentication
	RateLimitPerMin int      // Zero disables rate limiting
	RateLimitWindow time.Duration
	CORSOrigins     string
	EnablePprof     bool
}

// ExtractorConfig holds yt-dlp and ffmpeg configuration
type ExtractorConfig struct {
	YtdlpPath     string
	FFmpegPath    string
	YtdlpTimeout  time.Duration
	FFmpegTimeout time.Duration
	TempDir       string
	Debug         bool // Pass yt-dlp output through instead of --quiet
}

// CredentialsConfig holds per-platform credential configuration
type CredentialsConfig struct {
	CookiesDir      string
	TikTokUserAgent string
	TikTokProxy     string
	InstagramProxy  string
}

// PlatformsConfig holds platform policy configuration
type PlatformsConfig struct {
	PoliciesFile string // TOML overrides for the builtin policy table
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Address  string
	Password string
}

// CacheConfig holds metadata cache configuration
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// QueueConfig holds deferred job queue configuration
type QueueConfig struct {
	Enabled     bool
	Concurrency int
	TaskTimeout time.Duration
}

// StorageConfig holds artifact storage configuration
type StorageConfig struct {
	Backend            string // local or s3
	LocalPath          string
	Retention          time.Duration // Local artifacts older than this are swept
	S3Region           string
	S3Bucket           string
	S3Endpoint         string // For R2/MinIO
	PresignedURLExpiry time.Duration
}

// CleanupConfig holds scratch sweeper configuration
type CleanupConfig struct {
	Enabled  bool
	Interval time.Duration
	MaxAge   time.Duration // Scratch files older than this are orphans
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level         string // debug, info, warn, error
	Format        string // json, text
	FileName      string // Empty disables the rotating file sink
	MaxSize       int    // MB
	MaxBackups    int
	MaxAge        int // days
	Compress      bool
	ConsoleOutput bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		API: APIConfig{
			Port:            getEnvInt("API_PORT", 8080),
			Host:            getEnv("API_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvDuration("API_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("API_WRITE_TIMEOUT", 15*time.Minute),
			APIKeys:         getEnvList("API_KEYS"),
			RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
			RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
			CORSOrigins:     getEnv("CORS_ORIGINS", "*"),
			EnablePprof:     getEnvBool("ENABLE_PPROF", false),
		},
		Extractor: ExtractorConfig{
			YtdlpPath:     getEnv("YTDLP_PATH", "yt-dlp"),
			FFmpegPath:    getEnv("FFMPEG_PATH", "ffmpeg"),
			YtdlpTimeout:  getEnvDuration("YTDLP_TIMEOUT", 10*time.Minute),
			FFmpegTimeout: getEnvDuration("FFMPEG_TIMEOUT", 30*time.Minute),
			TempDir:       getEnv("TEMP_DIR", os.TempDir()),
			Debug:         getEnvBool("DEBUG_YTDLP", false),
		},
		Credentials: CredentialsConfig{
			CookiesDir:      getEnv("COOKIES_DIR", "./cookies"),
			TikTokUserAgent: getEnv("TIKTOK_UA", ""),
			TikTokProxy:     getEnv("TIKTOK_PROXY", ""),
			InstagramProxy:  getEnv("INSTAGRAM_PROXY", ""),
		},
		Platforms: PlatformsConfig{
			PoliciesFile: getEnv("PLATFORMS_FILE", ""),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Cache: CacheConfig{
			Enabled: getEnvBool("CACHE_ENABLED", true),
			TTL:     getEnvDuration("CACHE_TTL", 24*time.Hour),
		},
		Queue: QueueConfig{
			Enabled:     getEnvBool("QUEUE_ENABLED", true),
			Concurrency: getEnvInt("QUEUE_CONCURRENCY", 4),
			TaskTimeout: getEnvDuration("QUEUE_TASK_TIMEOUT", 15*time.Minute),
		},
		Storage: StorageConfig{
			Backend:            getEnv("STORAGE_BACKEND", "local"),
			LocalPath:          getEnv("STORAGE_LOCAL_PATH", "./data/files"),
			Retention:          getEnvDuration("STORAGE_RETENTION", 7*24*time.Hour),
			S3Region:           getEnv("S3_REGION", "us-east-1"),
			S3Bucket:           getEnv("S3_BUCKET", ""),
			S3Endpoint:         getEnv("S3_ENDPOINT", ""),
			PresignedURLExpiry: getEnvDuration("S3_PRESIGNED_EXPIRY", 24*time.Hour),
		},
		Cleanup: CleanupConfig{
			Enabled:  getEnvBool("CLEANUP_ENABLED", true),
			Interval: getEnvDuration("CLEANUP_INTERVAL", 10*time.Minute),
			MaxAge:   getEnvDuration("CLEANUP_MAX_AGE", 30*time.Minute),
		},
		Logger: LoggerConfig{
			Level:         getEnv("LOG_LEVEL", "info"),
			Format:        getEnv("LOG_FORMAT", "json"),
			FileName:      getEnv("LOG_FILE", ""),
			MaxSize:       getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups:    getEnvInt("LOG_MAX_BACKUPS", 3),
			MaxAge:        getEnvInt("LOG_MAX_AGE", 28),
			Compress:      getEnvBool("LOG_COMPRESS", true),
			ConsoleOutput: getEnvBool("LOG_CONSOLE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("API_PORT must be between 1 and 65535, got %d", c.API.Port)
	}

	if c.Extractor.YtdlpPath == "" {
		return fmt.Errorf("YTDLP_PATH is required")
	}

	if c.Extractor.FFmpegPath == "" {
		return fmt.Errorf("FFMPEG_PATH is required")
	}

	if c.Extractor.TempDir == "" {
		return fmt.Errorf("TEMP_DIR is required")
	}

	if (c.Cache.Enabled || c.Queue.Enabled) && c.Redis.Address == "" {
		return fmt.Errorf("REDIS_ADDR is required when cache or queue is enabled")
	}

	if c.Queue.Enabled && c.Queue.Concurrency < 1 {
		return fmt.Errorf("QUEUE_CONCURRENCY must be >= 1")
	}

	switch c.Storage.Backend {
	case "local":
		if c.Storage.LocalPath == "" {
			return fmt.Errorf("STORAGE_LOCAL_PATH is required for local storage")
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for s3 storage")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be local or s3, got %q", c.Storage.Backend)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
