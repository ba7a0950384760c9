package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
)

// CompressionMiddleware compresses JSON responses while leaving media
// bodies alone. Download responses are already compressed containers;
// recompressing them burns CPU for nothing.
func CompressionMiddleware() fiber.Handler {
	return compress.New(compress.Config{
		Level: compress.LevelBestSpeed,

		Next: func(c *fiber.Ctx) bool {
			path := c.Path()
			if strings.HasPrefix(path, "/download") || strings.HasPrefix(path, "/files") {
				return true
			}

			contentType := string(c.Response().Header.ContentType())
			return isCompressedContentType(contentType)
		},
	})
}

// isCompressedContentType checks if the content type is already compressed
func isCompressedContentType(contentType string) bool {
	compressedTypes := []string{
		"video/",
		"audio/",
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
		"application/zip",
		"application/gzip",
	}

	for _, ct := range compressedTypes {
		if strings.HasPrefix(contentType, ct) {
			return true
		}
	}

	return false
}
