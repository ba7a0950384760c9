package config

import (
	"reflect"
	"testing"
	"time"
)

// clearMedfetchEnv pins every variable the loader reads so values from
// the invoking shell cannot leak into assertions
func clearMedfetchEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"API_PORT", "API_HOST", "API_READ_TIMEOUT", "API_WRITE_TIMEOUT",
		"API_KEYS", "RATE_LIMIT_PER_MINUTE", "RATE_LIMIT_WINDOW",
		"CORS_ORIGINS", "ENABLE_PPROF",
		"YTDLP_PATH", "FFMPEG_PATH", "YTDLP_TIMEOUT", "FFMPEG_TIMEOUT",
		"TEMP_DIR", "DEBUG_YTDLP",
		"COOKIES_DIR", "TIKTOK_UA", "TIKTOK_PROXY", "INSTAGRAM_PROXY",
		"PLATFORMS_FILE", "REDIS_ADDR", "REDIS_PASSWORD",
		"CACHE_ENABLED", "CACHE_TTL",
		"QUEUE_ENABLED", "QUEUE_CONCURRENCY", "QUEUE_TASK_TIMEOUT",
		"STORAGE_BACKEND", "STORAGE_LOCAL_PATH", "STORAGE_RETENTION",
		"S3_REGION", "S3_BUCKET", "S3_ENDPOINT", "S3_PRESIGNED_EXPIRY",
		"CLEANUP_ENABLED", "CLEANUP_INTERVAL", "CLEANUP_MAX_AGE",
		"LOG_LEVEL", "LOG_FORMAT", "LOG_FILE", "LOG_MAX_SIZE",
		"LOG_MAX_BACKUPS", "LOG_MAX_AGE", "LOG_COMPRESS", "LOG_CONSOLE",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearMedfetchEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.API.Port)
	}
	if cfg.API.RateLimitPerMin != 60 {
		t.Errorf("RateLimitPerMin = %d, want 60", cfg.API.RateLimitPerMin)
	}
	if cfg.API.WriteTimeout != 15*time.Minute {
		t.Errorf("WriteTimeout = %v", cfg.API.WriteTimeout)
	}
	if cfg.Extractor.YtdlpPath != "yt-dlp" {
		t.Errorf("YtdlpPath = %q", cfg.Extractor.YtdlpPath)
	}
	if cfg.Extractor.YtdlpTimeout != 10*time.Minute {
		t.Errorf("YtdlpTimeout = %v", cfg.Extractor.YtdlpTimeout)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("cache defaults wrong: %+v", cfg.Cache)
	}
	if !cfg.Queue.Enabled || cfg.Queue.Concurrency != 4 {
		t.Errorf("queue defaults wrong: %+v", cfg.Queue)
	}
	if cfg.Storage.Backend != "local" {
		t.Errorf("Backend = %q, want local", cfg.Storage.Backend)
	}
	if cfg.Storage.Retention != 7*24*time.Hour {
		t.Errorf("Retention = %v", cfg.Storage.Retention)
	}
	if cfg.Logger.MaxBackups != 3 || cfg.Logger.MaxAge != 28 {
		t.Errorf("logger rotation defaults wrong: %+v", cfg.Logger)
	}
	if len(cfg.API.APIKeys) != 0 {
		t.Errorf("APIKeys = %v, want none", cfg.API.APIKeys)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearMedfetchEnv(t)
	t.Setenv("API_PORT", "9000")
	t.Setenv("API_KEYS", "key-a, key-b ,,key-c")
	t.Setenv("YTDLP_TIMEOUT", "90s")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("DEBUG_YTDLP", "1")
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "artifacts")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.API.Port != 9000 {
		t.Errorf("Port = %d", cfg.API.Port)
	}
	if want := []string{"key-a", "key-b", "key-c"}; !reflect.DeepEqual(cfg.API.APIKeys, want) {
		t.Errorf("APIKeys = %v, want %v", cfg.API.APIKeys, want)
	}
	if cfg.Extractor.YtdlpTimeout != 90*time.Second {
		t.Errorf("YtdlpTimeout = %v", cfg.Extractor.YtdlpTimeout)
	}
	if cfg.Cache.Enabled {
		t.Error("cache should be disabled")
	}
	if !cfg.Extractor.Debug {
		t.Error("debug should be on for DEBUG_YTDLP=1")
	}
	if cfg.Storage.Backend != "s3" || cfg.Storage.S3Bucket != "artifacts" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearMedfetchEnv(t)
	t.Setenv("STORAGE_BACKEND", "ftp")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected a validation error")
	}
}

func validConfig() *Config {
	return &Config{
		API:       APIConfig{Port: 8080},
		Extractor: ExtractorConfig{YtdlpPath: "yt-dlp", FFmpegPath: "ffmpeg", TempDir: "/tmp"},
		Redis:     RedisConfig{Address: "localhost:6379"},
		Cache:     CacheConfig{Enabled: true},
		Queue:     QueueConfig{Enabled: true, Concurrency: 4},
		Storage:   StorageConfig{Backend: "local", LocalPath: "./data"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"port zero", func(c *Config) { c.API.Port = 0 }, true},
		{"port too high", func(c *Config) { c.API.Port = 70000 }, true},
		{"missing ytdlp", func(c *Config) { c.Extractor.YtdlpPath = "" }, true},
		{"missing ffmpeg", func(c *Config) { c.Extractor.FFmpegPath = "" }, true},
		{"missing temp dir", func(c *Config) { c.Extractor.TempDir = "" }, true},
		{"redis required by cache", func(c *Config) { c.Redis.Address = "" }, true},
		{
			"redis optional when cache and queue off",
			func(c *Config) {
				c.Redis.Address = ""
				c.Cache.Enabled = false
				c.Queue.Enabled = false
			},
			false,
		},
		{"zero concurrency", func(c *Config) { c.Queue.Concurrency = 0 }, true},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "ftp" }, true},
		{"local without path", func(c *Config) { c.Storage.LocalPath = "" }, true},
		{
			"s3 without bucket",
			func(c *Config) { c.Storage.Backend = "s3"; c.Storage.S3Bucket = "" },
			true,
		},
		{
			"s3 with bucket",
			func(c *Config) { c.Storage.Backend = "s3"; c.Storage.S3Bucket = "b" },
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
