package middleware

import (
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"medfetch/internal/errors"
	"medfetch/internal/types"
)

// Quality labels the download pipeline understands. "best" means no
// height cap.
var validQualities = map[string]bool{
	"best":  true,
	"4k":    true,
	"2160p": true,
	"1440p": true,
	"1080p": true,
	"720p":  true,
	"480p":  true,
	"360p":  true,
}

// ValidateDownloadRequest checks a download request before it reaches
// the pipeline. The format field is a raw yt-dlp selector and is passed
// through untouched.
func ValidateDownloadRequest(req *types.DownloadRequest) error {
	if strings.TrimSpace(req.URL) == "" {
		return errors.ErrInvalidURL.WithDetails("url is required")
	}

	if !isValidURL(req.URL) {
		return errors.ErrInvalidURL.WithDetails(fmt.Sprintf("url is not valid: %s", req.URL))
	}

	if req.Quality != "" && !validQualities[strings.ToLower(req.Quality)] {
		return errors.ErrInvalidRequest.WithDetails(
			fmt.Sprintf("quality must be one of: %s", strings.Join(qualityLabels(), ", ")),
		)
	}

	for _, lang := range req.Subtitles {
		if strings.TrimSpace(lang) == "" {
			return errors.ErrInvalidRequest.WithDetails("subtitle language must not be empty")
		}
	}

	return nil
}

// ValidateMediaURL checks the bare URL used by extract, info, and
// list-formats requests
func ValidateMediaURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return errors.ErrInvalidURL.WithDetails("url is required")
	}
	if !isValidURL(rawURL) {
		return errors.ErrInvalidURL.WithDetails(fmt.Sprintf("url is not valid: %s", rawURL))
	}
	return nil
}

// ErrorHandlingMiddleware recovers panics and converts errors into the
// JSON error shape every endpoint shares
func ErrorHandlingMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic recovered",
					zap.Any("panic", r),
					zap.String("path", c.Path()),
					zap.String("method", c.Method()),
				)
				_ = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Internal server error",
					"code":  "INTERNAL_ERROR",
				})
			}
		}()

		err := c.Next()
		if err != nil {
			return handleError(c, err, logger)
		}
		return nil
	}
}

// handleError converts errors to proper HTTP responses
func handleError(c *fiber.Ctx, err error, logger *zap.Logger) error {
	statusCode := errors.GetStatusCode(err)
	errorCode := errors.GetErrorCode(err)
	errorMessage := errors.GetErrorMessage(err)

	logger.Error("Request error",
		zap.Error(err),
		zap.String("path", c.Path()),
		zap.String("method", c.Method()),
		zap.Int("status", statusCode),
		zap.String("error_code", errorCode),
	)

	body := fiber.Map{
		"error": errorMessage,
		"code":  errorCode,
		"path":  c.Path(),
	}

	var customErr *errors.CustomError
	if stderrors.As(err, &customErr) && customErr.Details != nil {
		body["detail"] = customErr.Details
	}

	return c.Status(statusCode).JSON(body)
}

// ValidationMiddleware validates common request patterns
func ValidationMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PUT" {
			if ct := c.Get("Content-Type"); !strings.Contains(ct, "application/json") {
				return errors.ErrInvalidRequest.WithDetails("Content-Type must be application/json")
			}
		}

		return c.Next()
	}
}

func isValidURL(urlStr string) bool {
	_, err := url.ParseRequestURI(strings.TrimSpace(urlStr))
	return err == nil
}

func qualityLabels() []string {
	return []string{"best", "4k", "2160p", "1440p", "1080p", "720p", "480p", "360p"}
}
