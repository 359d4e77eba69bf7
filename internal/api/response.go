package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/taskpriority/internal/domain"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes. Wrapped errors are
// unwrapped, so a GroupCreationError caused by a missing task is still a 404.
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var groupErr *domain.GroupCreationError
	if errors.As(err, &groupErr) {
		if code := errorCode(groupErr.Err); code == domain.ErrCodeNotFound || code == domain.ErrCodeValidation {
			return codeToHTTP(code)
		}
		return http.StatusInternalServerError
	}

	var providerErr *domain.EmbeddingProviderError
	if errors.As(err, &providerErr) {
		return http.StatusBadGateway
	}

	var detectErr *domain.DetectionError
	if errors.As(err, &detectErr) {
		return http.StatusInternalServerError
	}

	return codeToHTTP(errorCode(err))
}

func codeToHTTP(code string) int {
	switch code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeAlreadyExists:
		return http.StatusConflict
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrCodeForbidden:
		return http.StatusForbidden
	case domain.ErrCodeInvalidOperation:
		return http.StatusBadRequest
	case domain.ErrCodeEmbeddingProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorCode returns the machine-readable code for err, or "" for untyped errors.
func errorCode(err error) string {
	var groupErr *domain.GroupCreationError
	var providerErr *domain.EmbeddingProviderError
	var detectErr *domain.DetectionError
	var domainErr *domain.DomainError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &groupErr):
		return domain.ErrCodeGroupCreation
	case errors.As(err, &providerErr):
		return domain.ErrCodeEmbeddingProvider
	case errors.As(err, &detectErr):
		return domain.ErrCodeDetection
	case errors.As(err, &domainErr):
		return domainErr.Code
	default:
		return ""
	}
}

// HandleError writes an appropriate error response based on the error type
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)
	JSON(w, status, ErrorResponse{Error: err.Error(), Code: errorCode(err)})
}
