package credentials

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"medfetch/internal/errors"
	"medfetch/internal/platform"
)

// Desktop Chrome identity presented to TikTok and Instagram. TikTok's
// can be overridden through config.
const DefaultDesktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Header is a single HTTP header forwarded to the extractor
type Header struct {
	Name  string
	Value string
}

// Bundle carries everything a platform needs for an authenticated
// extractor invocation. The zero value is a valid empty bundle.
type Bundle struct {
	CookiePath string
	UserAgent  string
	Proxy      string
	Headers    []Header
}

// Config holds resolver settings loaded from the environment
type Config struct {
	CookiesDir      string
	TikTokUserAgent string
	TikTokProxy     string
	InstagramProxy  string
}

// Resolver validates cookie files and assembles credential bundles
type Resolver struct {
	cfg    Config
	logger *zap.Logger
}

// NewResolver creates a credential resolver
func NewResolver(cfg Config, logger *zap.Logger) *Resolver {
	if cfg.TikTokUserAgent == "" {
		cfg.TikTokUserAgent = DefaultDesktopUA
	}
	return &Resolver{
		cfg:    cfg,
		logger: logger,
	}
}

// Resolve returns the credential bundle for a platform policy, or an
// AUTH_MISSING error when a required cookie file is absent, empty, or
// unreadable. Resolution never touches the extractor; callers must
// fail fast on error without invoking it.
func (r *Resolver) Resolve(pol platform.Policy) (Bundle, error) {
	var bundle Bundle

	if pol.RequiresCookie {
		path := filepath.Join(r.cfg.CookiesDir, pol.CookieFile)
		if err := r.checkCookieFile(path, pol.Tag); err != nil {
			return Bundle{}, err
		}
		bundle.CookiePath = path
	}

	switch pol.Tag {
	case platform.TagTikTok:
		bundle.UserAgent = r.cfg.TikTokUserAgent
		bundle.Proxy = r.cfg.TikTokProxy
		bundle.Headers = []Header{
			{Name: "Referer", Value: "https://www.tiktok.com/"},
			{Name: "Accept-Language", Value: "en-US,en;q=0.9,pt-BR;q=0.8"},
		}
	case platform.TagInstagram:
		bundle.UserAgent = DefaultDesktopUA
		bundle.Proxy = r.cfg.InstagramProxy
		bundle.Headers = []Header{
			{Name: "Referer", Value: "https://www.instagram.com/"},
		}
	}

	return bundle, nil
}

// checkCookieFile verifies the file exists, is a regular file, is
// non-empty, and is readable. Checked in that order so the error detail
// names the first failure.
func (r *Resolver) checkCookieFile(path string, tag platform.Tag) error {
	info, err := os.Stat(path)
	if err != nil {
		r.logger.Warn("Cookie file not found",
			zap.String("platform", string(tag)),
			zap.String("path", path),
			zap.Error(err),
		)
		return errors.ErrAuthMissing.
			WithCause(err).
			WithDetails(fmt.Sprintf("%s cookie file missing: %s", tag, filepath.Base(path)))
	}

	if !info.Mode().IsRegular() {
		r.logger.Warn("Cookie path is not a regular file",
			zap.String("platform", string(tag)),
			zap.String("path", path),
		)
		return errors.ErrAuthMissing.
			WithDetails(fmt.Sprintf("%s cookie path is not a file: %s", tag, filepath.Base(path)))
	}

	if info.Size() == 0 {
		r.logger.Warn("Cookie file is empty",
			zap.String("platform", string(tag)),
			zap.String("path", path),
		)
		return errors.ErrAuthMissing.
			WithDetails(fmt.Sprintf("%s cookie file is empty: %s", tag, filepath.Base(path)))
	}

	f, err := os.Open(path)
	if err != nil {
		r.logger.Warn("Cookie file is not readable",
			zap.String("platform", string(tag)),
			zap.String("path", path),
			zap.Error(err),
		)
		return errors.ErrAuthMissing.
			WithCause(err).
			WithDetails(fmt.Sprintf("%s cookie file is unreadable: %s", tag, filepath.Base(path)))
	}
	f.Close()

	return nil
}

// Describe reports short cookie file diagnostics for logs, never errors
func (r *Resolver) Describe(pol platform.Policy) string {
	if !pol.RequiresCookie {
		return "none required"
	}
	path := filepath.Join(r.cfg.CookiesDir, pol.CookieFile)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Sprintf("%s (missing)", path)
	}
	return fmt.Sprintf("%s (size=%d)", path, info.Size())
}
