package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tessera/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrProjectNotFound):
		return http.StatusNotFound, "PROJECT_NOT_FOUND", "project not found"
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND", "session not found"
	case errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound, "JOB_NOT_FOUND", "job not found"
	case errors.Is(err, domain.ErrCellNotFound):
		return http.StatusNotFound, "CELL_NOT_FOUND", "grid cell not found"
	case errors.Is(err, domain.ErrRuleNotFound):
		return http.StatusNotFound, "RULE_NOT_FOUND", "extraction rule not found"
	case errors.Is(err, domain.ErrElementNotFound):
		return http.StatusNotFound, "ELEMENT_NOT_FOUND", "schema element not found"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrJobTerminal):
		return http.StatusConflict, "JOB_TERMINAL", "job already reached a terminal state"
	case errors.Is(err, domain.ErrJobNotCancellable):
		return http.StatusConflict, "JOB_NOT_CANCELLABLE", "job can only be cancelled while pending or running"
	case errors.Is(err, domain.ErrSessionBusy):
		return http.StatusConflict, "SESSION_BUSY", "session already has an active job"
	case errors.Is(err, domain.ErrSessionClosed):
		return http.StatusConflict, "SESSION_CLOSED", "session is no longer in progress"
	case errors.Is(err, domain.ErrDuplicateIdentifier):
		return http.StatusConflict, "DUPLICATE_IDENTIFIER", "group already has an identifier column"
	case errors.Is(err, domain.ErrInvalidFieldType):
		return http.StatusBadRequest, "INVALID_FIELD_TYPE", "field type must be text, number, date, or boolean"
	case errors.Is(err, domain.ErrInvalidSchema):
		return http.StatusBadRequest, "INVALID_SCHEMA", "schema definition is invalid for this project"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		log.Printf("[%s] internal error: %v", requestID, err)
	}
	RespondError(c, status, code, msg)
}

// parsePagination reads offset/limit query parameters with sane bounds.
func parsePagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return offset, limit
}
