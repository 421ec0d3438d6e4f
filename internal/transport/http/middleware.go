package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/core"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch core.ErrorCode(err) {
	case core.ErrCodeBadRequest:
		return http.StatusBadRequest
	case core.ErrCodeRoomNotOpen:
		return http.StatusNotFound
	case core.ErrCodePrecondition:
		return http.StatusConflict
	case core.ErrCodeAccessBanned:
		return http.StatusForbidden
	case core.ErrCodeModerationRejected:
		return http.StatusUnprocessableEntity
	case core.ErrCodeNotConnected:
		return http.StatusServiceUnavailable
	case "rate_limited":
		return http.StatusTooManyRequests
	}
	switch {
	case errors.Is(err, core.ErrNotConnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, logger *zerolog.Logger, err error) {
	status := statusFor(err)
	code := core.ErrorCode(err)
	if errors.Is(err, core.ErrNotConnected) {
		code = core.ErrCodeNotConnected
	}
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("view request failed")
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// indexParam parses the :index path parameter.
func indexParam(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room index", Code: core.ErrCodeBadRequest})
		return 0, false
	}
	return idx, true
}
