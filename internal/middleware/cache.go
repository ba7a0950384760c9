package middleware

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// HTTPCache adds ETag and Cache-Control headers to successful GET
// responses and answers If-None-Match with 304. Metadata lookups repeat
// a lot; the conditional round trip saves re-serializing them.
func HTTPCache(maxAgeSeconds int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet {
			return c.Next()
		}

		if err := c.Next(); err != nil {
			return err
		}

		statusCode := c.Response().StatusCode()
		if statusCode < 200 || statusCode >= 300 {
			return nil
		}

		etag := generateETag(c.Response().Body())
		c.Set("ETag", etag)
		c.Set("Cache-Control", "public, max-age="+strconv.Itoa(maxAgeSeconds)+", must-revalidate")

		if clientETag := c.Get("If-None-Match"); clientETag == etag {
			c.Status(fiber.StatusNotModified)
			c.Response().SetBodyRaw(nil)
		}

		return nil
	}
}

// NoCache disables caching for routes serving one-shot media bytes
func NoCache() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		c.Set("Pragma", "no-cache")
		return c.Next()
	}
}

// generateETag creates an ETag from the response body
func generateETag(body []byte) string {
	hash := md5.Sum(body)
	return `"` + hex.EncodeToString(hash[:]) + `"`
}
