package http

import (
	"errors"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

// APIError is the error body returned by every endpoint.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope wraps APIError.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError writes an error envelope with the given status.
func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondOK writes payload as JSON with status 200.
func RespondOK(c *gin.Context, payload any) {
	c.JSON(stdhttp.StatusOK, payload)
}

// RespondDomainError maps core errors to HTTP statuses.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		RespondError(c, stdhttp.StatusBadRequest, "invalid_input", err)
	case errors.Is(err, domain.ErrNotFound):
		RespondError(c, stdhttp.StatusNotFound, "not_found", err)
	case errors.Is(err, domain.ErrUnsupportedType):
		RespondError(c, stdhttp.StatusUnsupportedMediaType, "unsupported_type", err)
	case errors.Is(err, domain.ErrExtraction):
		RespondError(c, stdhttp.StatusUnprocessableEntity, "extraction_failed", err)
	case errors.Is(err, domain.ErrSyncLocked):
		RespondError(c, stdhttp.StatusConflict, "sync_locked", err)
	case errors.Is(err, domain.ErrNameConflict):
		RespondError(c, stdhttp.StatusConflict, "name_conflict", err)
	case errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrLLMUnavailable),
		errors.Is(err, domain.ErrVectorIndexUnavailable):
		RespondError(c, stdhttp.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, domain.ErrEmbeddingProvider),
		errors.Is(err, domain.ErrUnrecognisedResponse):
		RespondError(c, stdhttp.StatusBadGateway, "provider_error", err)
	default:
		RespondError(c, stdhttp.StatusInternalServerError, "internal", err)
	}
}
