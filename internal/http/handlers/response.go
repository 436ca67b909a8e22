// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by every endpoint: the error
// envelope, JSON success writers, and the mapping from service errors to
// HTTP results.
//
// Conventions:
//   - Error responses always carry an ErrorResponse with a stable `code`.
//   - `fail()` logs 5xx responses with the request-scoped logger.
//   - `writeServiceError()` is the single place where service sentinels are
//     turned into status codes.
//
// Example error response:
//
//	HTTP/1.1 409 Conflict
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "insufficient_balance",
//	  "message": "insufficient balance: balance 10, reserved 8, available 2, requested 5",
//	  "details": {"balance": 10, "reserved": 8, "available": 2, "requested": 5}
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-tutor-backend/internal/http/middleware"
	"github.com/tbourn/go-tutor-backend/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
	// Structured context for some codes (e.g. balance figures)
	Details map[string]any `json:"details,omitempty" swaggertype:"object"`
}

// fail aborts the request with a structured error and logs server-side errors.
func fail(c *gin.Context, status int, code, msg string) {
	failWithDetails(c, status, code, msg, nil)
}

func failWithDetails(c *gin.Context, status int, code, msg string, details map[string]any) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
		Details:   details,
	}

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for use by the router.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// writeServiceError maps a service error onto the error envelope. Unknown
// errors become 500 internal_error.
func writeServiceError(c *gin.Context, err error) {
	var ib *services.InsufficientBalanceError
	switch {
	case errors.As(err, &ib):
		failWithDetails(c, http.StatusConflict, ErrCodeInsufficientBalance, ib.Error(), map[string]any{
			"balance":   ib.Balance,
			"reserved":  ib.Reserved,
			"available": ib.Available,
			"requested": ib.Requested,
		})

	case errors.Is(err, services.ErrInvalidInput):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidSkillpoints):
		fail(c, http.StatusBadRequest, ErrCodeInvalidSkillpoints, err.Error())
	case errors.Is(err, services.ErrSelfAccept):
		fail(c, http.StatusBadRequest, ErrCodeSelfAccept, err.Error())

	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrRequestNotFound),
		errors.Is(err, services.ErrChatNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())

	case errors.Is(err, services.ErrAlreadyAccepted):
		fail(c, http.StatusConflict, ErrCodeAlreadyAccepted, err.Error())
	case errors.Is(err, services.ErrInvalidStatus):
		fail(c, http.StatusConflict, ErrCodeInvalidStatus, err.Error())
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, services.ErrNotParticipant):
		fail(c, http.StatusForbidden, ErrCodeNotParticipant, err.Error())

	case errors.Is(err, services.ErrMissingParties):
		fail(c, http.StatusConflict, ErrCodeMissingParties, err.Error())
	case errors.Is(err, services.ErrSameUser):
		fail(c, http.StatusConflict, ErrCodeSameUser, err.Error())
	case errors.Is(err, services.ErrCreatorInsufficientFunds):
		fail(c, http.StatusConflict, ErrCodeCreatorInsufficientFunds, err.Error())

	case errors.Is(err, services.ErrEmailExists):
		fail(c, http.StatusConflict, ErrCodeEmailExists, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, err.Error())

	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
