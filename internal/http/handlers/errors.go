package handlers

import (
	"net/http"

	"backoffice/internal/domain"
	"backoffice/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	c.JSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: middleware.GetRequestID(c),
	})
}

// RespondDomainError maps domain errors to HTTP responses. Store and storage
// failures never leak detail; the service has already logged it.
func RespondDomainError(c *gin.Context, err error) {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case domain.KindNotFound:
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.KindIllegalTransition:
		respondError(c, http.StatusConflict, "illegal_transition", err.Error(), nil)
	case domain.KindConflict:
		respondError(c, http.StatusConflict, "conflict", err.Error(), nil)
	case domain.KindStorageWriteFailed:
		respondError(c, http.StatusInternalServerError, "storage_write_failed", "could not store the uploaded file, please retry", nil)
	default:
		respondError(c, http.StatusInternalServerError, "internal_error", "something went wrong, please retry", nil)
	}
}
