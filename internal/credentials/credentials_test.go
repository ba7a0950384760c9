package credentials

import (
	goerrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"medfetch/internal/errors"
	"medfetch/internal/platform"
)

func writeCookie(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestResolver(t *testing.T, cfg Config) *Resolver {
	t.Helper()
	return NewResolver(cfg, zap.NewNop())
}

func TestResolveNoCookieRequired(t *testing.T) {
	r := newTestResolver(t, Config{CookiesDir: t.TempDir()})

	bundle, err := r.Resolve(platform.Policy{Tag: platform.TagGeneric})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if bundle.CookiePath != "" {
		t.Errorf("CookiePath = %q, want empty", bundle.CookiePath)
	}
}

func TestResolveCookiePresent(t *testing.T) {
	dir := t.TempDir()
	writeCookie(t, dir, "cookies.txt", "# Netscape HTTP Cookie File\n")
	r := newTestResolver(t, Config{CookiesDir: dir})

	pol := platform.Policy{
		Tag:            platform.TagYouTube,
		RequiresCookie: true,
		CookieFile:     "cookies.txt",
	}
	bundle, err := r.Resolve(pol)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if want := filepath.Join(dir, "cookies.txt"); bundle.CookiePath != want {
		t.Errorf("CookiePath = %q, want %q", bundle.CookiePath, want)
	}
}

func TestResolveCookieFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, dir string)
	}{
		{
			name:  "missing file",
			setup: func(t *testing.T, dir string) {},
		},
		{
			name: "empty file",
			setup: func(t *testing.T, dir string) {
				writeCookie(t, dir, "cookies.txt", "")
			},
		},
		{
			name: "path is a directory",
			setup: func(t *testing.T, dir string) {
				if err := os.Mkdir(filepath.Join(dir, "cookies.txt"), 0755); err != nil {
					t.Fatal(err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(t, dir)
			r := newTestResolver(t, Config{CookiesDir: dir})

			pol := platform.Policy{
				Tag:            platform.TagYouTube,
				RequiresCookie: true,
				CookieFile:     "cookies.txt",
			}
			_, err := r.Resolve(pol)
			if err == nil {
				t.Fatal("Resolve() expected an error")
			}
			if !goerrors.Is(err, errors.ErrAuthMissing) {
				t.Errorf("Resolve() error = %v, want AUTH_MISSING", err)
			}
			if got := errors.GetStatusCode(err); got != 401 {
				t.Errorf("status code = %d, want 401", got)
			}
		})
	}
}

func TestResolveTikTokBundle(t *testing.T) {
	dir := t.TempDir()
	writeCookie(t, dir, "tiktok.txt", "cookie data")
	r := newTestResolver(t, Config{
		CookiesDir:      dir,
		TikTokUserAgent: "custom-agent/1.0",
		TikTokProxy:     "http://proxy.example:8080",
	})

	pol := platform.Policy{
		Tag:            platform.TagTikTok,
		RequiresCookie: true,
		CookieFile:     "tiktok.txt",
	}
	bundle, err := r.Resolve(pol)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if bundle.UserAgent != "custom-agent/1.0" {
		t.Errorf("UserAgent = %q, want the configured override", bundle.UserAgent)
	}
	if bundle.Proxy != "http://proxy.example:8080" {
		t.Errorf("Proxy = %q, want the configured proxy", bundle.Proxy)
	}

	var referer string
	for _, h := range bundle.Headers {
		if h.Name == "Referer" {
			referer = h.Value
		}
	}
	if referer != "https://www.tiktok.com/" {
		t.Errorf("Referer = %q, want the tiktok origin", referer)
	}
}

func TestResolveTikTokDefaultUserAgent(t *testing.T) {
	dir := t.TempDir()
	writeCookie(t, dir, "tiktok.txt", "cookie data")
	r := newTestResolver(t, Config{CookiesDir: dir})

	pol := platform.Policy{
		Tag:            platform.TagTikTok,
		RequiresCookie: true,
		CookieFile:     "tiktok.txt",
	}
	bundle, err := r.Resolve(pol)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if bundle.UserAgent != DefaultDesktopUA {
		t.Errorf("UserAgent = %q, want the desktop default", bundle.UserAgent)
	}
}

func TestResolveInstagramBundle(t *testing.T) {
	dir := t.TempDir()
	writeCookie(t, dir, "instagram.txt", "cookie data")
	r := newTestResolver(t, Config{
		CookiesDir: dir,
		// Instagram always presents the fixed desktop identity, the
		// TikTok override must not bleed over.
		TikTokUserAgent: "custom-agent/1.0",
		InstagramProxy:  "http://ig-proxy.example:8080",
	})

	pol := platform.Policy{
		Tag:            platform.TagInstagram,
		RequiresCookie: true,
		CookieFile:     "instagram.txt",
	}
	bundle, err := r.Resolve(pol)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if bundle.UserAgent != DefaultDesktopUA {
		t.Errorf("UserAgent = %q, want the fixed desktop identity", bundle.UserAgent)
	}
	if bundle.Proxy != "http://ig-proxy.example:8080" {
		t.Errorf("Proxy = %q, want the instagram proxy", bundle.Proxy)
	}
}

func TestDescribe(t *testing.T) {
	dir := t.TempDir()
	writeCookie(t, dir, "cookies.txt", "12345")
	r := newTestResolver(t, Config{CookiesDir: dir})

	if got := r.Describe(platform.Policy{Tag: platform.TagGeneric}); got != "none required" {
		t.Errorf("Describe(generic) = %q, want none required", got)
	}

	got := r.Describe(platform.Policy{
		Tag:            platform.TagYouTube,
		RequiresCookie: true,
		CookieFile:     "cookies.txt",
	})
	if want := "(size=5)"; !strings.Contains(got, want) {
		t.Errorf("Describe() = %q, want substring %q", got, want)
	}

	got = r.Describe(platform.Policy{
		Tag:            platform.TagYouTube,
		RequiresCookie: true,
		CookieFile:     "absent.txt",
	})
	if want := "(missing)"; !strings.Contains(got, want) {
		t.Errorf("Describe() = %q, want substring %q", got, want)
	}
}
