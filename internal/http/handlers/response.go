// Package handlers provides HTTP handler implementations for the back-office API.
//
// This file defines the error envelope and the response helpers shared by the
// handlers and the gatekeeping pipeline, so that every rejection (bad input,
// missing credential, rate limit, internal failure) has the same shape:
//
//	HTTP/1.1 429 Too Many Requests
//	Retry-After: 2
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "error": "rate limited",
//	  "code": "rate_limited",
//	  "retryAfterMs": 1970
//	}
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/hospitality-backoffice/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Human-readable message; never contains internal detail
	Error string `json:"error" example:"forbidden"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"forbidden"`
	// Milliseconds until the rate-limit window resets (429 only)
	RetryAfterMs *int64 `json:"retryAfterMs,omitempty" example:"970"`
}

// fail aborts the request with the error envelope. 5xx responses are logged
// with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: requestID(c),
		Error:     msg,
		Code:      code,
	})
}

// Fail is the exported variant of fail() for the router and the gate.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// FailRateLimited aborts with 429, a Retry-After header in whole seconds
// (rounded up) and retryAfterMs in the body.
func FailRateLimited(c *gin.Context, retryAfter time.Duration) {
	ms := retryAfter.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	secs := (ms + 999) / 1000
	c.Header("Retry-After", strconv.FormatInt(secs, 10))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
		RequestID:    requestID(c),
		Error:        MsgRateLimited,
		Code:         ErrCodeRateLimited,
		RetryAfterMs: &ms,
	})
}

func requestID(c *gin.Context) string {
	if rid := middleware.RequestIDFrom(c); rid != "" {
		return rid
	}
	return c.Writer.Header().Get("X-Request-ID")
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
