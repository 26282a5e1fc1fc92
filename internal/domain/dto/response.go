package dto

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
)

const (
	// ErrCodeInvalidRequest indicates an invalid request.
	ErrCodeInvalidRequest = "invalid_request"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal = "internal_error"
	// ErrCodeUnauthorized indicates missing or invalid authentication.
	ErrCodeUnauthorized = "unauthorized"
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound = "not_found"
	// ErrCodeRateLimit indicates rate limit exceeded.
	ErrCodeRateLimit = "rate_limit_exceeded"
	// ErrCodeConflict indicates a conflict with current state.
	ErrCodeConflict = "conflict"
	// ErrCodeTimeout indicates a request timeout.
	ErrCodeTimeout = "timeout"
	// ErrCodeUnavailable indicates a dependency (provider or store) is down.
	ErrCodeUnavailable = "service_unavailable"
	// ErrCodeProviderUnavailable indicates every provider failed for one item.
	ErrCodeProviderUnavailable = "provider_unavailable"
)

// SuccessResponse wraps successful API responses with metadata.
// @Description Successful API response wrapper
type SuccessResponse struct {
	// Data holds a LookupResult, BatchResponse, Performance or MaintenanceReport.
	Data      interface{} `json:"data" swaggertype:"object"`
	RequestID string      `json:"request_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	Timestamp time.Time   `json:"timestamp" example:"2025-01-28T10:00:00Z"`
} // @name SuccessResponse

// ErrorResponse represents a standardized error response for the API.
// @Description Standardized error response
type ErrorResponse struct {
	Error     string            `json:"error" example:"invalid_request"`
	Message   string            `json:"message,omitempty" example:"address must not be blank"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	Timestamp time.Time         `json:"timestamp" example:"2025-01-28T10:00:00Z"`
} // @name ErrorResponse

// NewError creates a new ErrorResponse with the given code and message.
func NewError(code, message string) ErrorResponse {
	return ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WithRequestID adds a request ID to the error response.
func (e ErrorResponse) WithRequestID(requestID string) ErrorResponse {
	e.RequestID = requestID
	return e
}

// ErrCodeFromStatus returns the appropriate error code for an HTTP status.
func ErrCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrCodeInvalidRequest
	case http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusConflict:
		return ErrCodeConflict
	case http.StatusTooManyRequests:
		return ErrCodeRateLimit
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return ErrCodeTimeout
	case http.StatusServiceUnavailable:
		return ErrCodeUnavailable
	default:
		return ErrCodeInternal
	}
}

// ErrCodeFromError classifies a domain error for a batch item.
func ErrCodeFromError(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidRequest):
		return ErrCodeInvalidRequest
	case errors.Is(err, model.ErrProviderUnavailable):
		return ErrCodeProviderUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	default:
		return ErrCodeInternal
	}
}

// BatchItemError describes why one batch item failed.
type BatchItemError struct {
	Code    string `json:"code" example:"provider_unavailable"`
	Message string `json:"message" example:"provider unavailable for geocode(\"1 main st\"): geocodio: no result"`
} // @name BatchItemError

// BatchItem is one position of a batch response; exactly one of Result or
// Error is set.
type BatchItem struct {
	Index  int             `json:"index" example:"0"`
	Result *model.Result   `json:"result,omitempty"`
	Error  *BatchItemError `json:"error,omitempty"`
} // @name BatchItem

// BatchResponse lists batch results in request order.
//
// @Description Per-item batch lookup results, in request order
type BatchResponse struct {
	Items     []BatchItem `json:"items"`
	Succeeded int         `json:"succeeded" example:"9"`
	Failed    int         `json:"failed" example:"1"`
	Cached    int         `json:"cached" example:"7"`
} // @name BatchResponse

// NewBatchResponse converts service results into the response body.
func NewBatchResponse(results []model.BatchResult) BatchResponse {
	resp := BatchResponse{Items: make([]BatchItem, len(results))}
	for i, r := range results {
		item := BatchItem{Index: i}
		if r.Err != nil {
			item.Error = &BatchItemError{Code: ErrCodeFromError(r.Err), Message: r.Err.Error()}
			resp.Failed++
		} else {
			item.Result = r.Result
			resp.Succeeded++
			if r.Result != nil && r.Result.Cached {
				resp.Cached++
			}
		}
		resp.Items[i] = item
	}
	return resp
}
