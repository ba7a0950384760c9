package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"medfetch/internal/errors"
)

// APIKeyAuth guards a route group with static API keys. The key comes
// from the X-API-Key header or the api_key query parameter. An empty
// key list disables the check.
func APIKeyAuth(validKeys []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if len(validKeys) == 0 {
			return c.Next()
		}

		apiKey := c.Get("X-API-Key")
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		if apiKey == "" || !keyMatches(apiKey, validKeys) {
			return errors.ErrUnauthorized.
				WithDetails("Provide X-API-Key header or api_key query parameter")
		}

		return c.Next()
	}
}

func keyMatches(candidate string, validKeys []string) bool {
	for _, key := range validKeys {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(key)) == 1 {
			return true
		}
	}
	return false
}
