// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all
// endpoints. Failures always render the taxonomy envelope from
// internal/apierr with the correlation id attached; successes are plain
// JSON payloads. Centralizing the helpers guarantees uniform responses for
// both success and failure cases.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "error": "Resource Not Found",
//	  "code": "RESOURCE_NOT_FOUND",
//	  "message": "User not found with id: 7",
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-user-backend/internal/apierr"
	"github.com/tbourn/go-user-backend/internal/http/middleware"
)

// fail aborts the request with the given error envelope, deriving the HTTP
// status from the error code. The correlation id is attached to the payload
// and server errors (>=500) are logged with the request-scoped logger.
func fail(c *gin.Context, resp *apierr.ErrorResponse) {
	failStatus(c, apierr.HTTPStatus(resp.Code), resp)
}

// failStatus is fail with an explicit status override, for responses whose
// status is not derivable from the error code (e.g. 405).
func failStatus(c *gin.Context, status int, resp *apierr.ErrorResponse) {
	resp.RequestID = c.Writer.Header().Get("X-Request-ID")

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", string(resp.Code)).
			Str("message", resp.Message).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of failStatus. External packages (e.g.,
// router setup) call it to return consistent error envelopes without
// depending on unexported helpers.
func Fail(c *gin.Context, status int, resp *apierr.ErrorResponse) { failStatus(c, status, resp) }

// ok writes a success JSON response with the given status code.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
