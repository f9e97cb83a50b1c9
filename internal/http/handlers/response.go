package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/suggestion-box/internal/http/middleware"
	"github.com/tbourn/suggestion-box/internal/services"
)

// ErrorResponse is the error body every endpoint returns.
type ErrorResponse struct {
	// Echo of X-Request-ID, for matching a client report to server logs
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go)
	Code string `json:"code" example:"not_found"`
	// Safe to show to users
	Message string `json:"message" example:"not voted yet"`
}

// MessageResponse is the acknowledgment returned by write endpoints.
type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

// fail aborts with the error envelope. 5xx responses are logged with the
// request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: middleware.RequestIDFrom(c),
		Code:      code,
		Message:   msg,
	})
}

// Fail lets the router answer NoRoute/NoMethod with the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// serviceErrors maps the service error kinds onto status and code. The
// service message is passed through verbatim.
var serviceErrors = []struct {
	kind   error
	status int
	code   string
}{
	{services.ErrValidation, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrConflict, http.StatusConflict, ErrCodeConflict},
	{services.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
	{services.ErrUnauthorized, http.StatusUnauthorized, ErrCodeUnauthorized},
	{services.ErrUnavailable, http.StatusServiceUnavailable, ErrCodeUnavailable},
}

// failService writes the envelope for a service error. A *services.StoreError
// surfaces its store message as a 500 store_error; anything unclassified is
// an opaque 500.
func failService(c *gin.Context, err error) {
	for _, k := range serviceErrors {
		if errors.Is(err, k.kind) {
			if k.status == http.StatusServiceUnavailable {
				c.Header("Retry-After", "1")
			}
			fail(c, k.status, k.code, err.Error())
			return
		}
	}

	var se *services.StoreError
	if errors.As(err, &se) {
		fail(c, http.StatusInternalServerError, ErrCodeStoreError, se.Error())
		return
	}
	_ = c.Error(err)
	fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
}
