package models

import "fmt"

// Error codes used in API responses.
const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeInvalidSpreadsheet = "INVALID_SPREADSHEET"
	ErrCodeInvalidStartIndex  = "INVALID_START_INDEX"
	ErrCodeTooManyProducts    = "TOO_MANY_PRODUCTS"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an ErrorDetail for non-2xx responses.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}

// APIError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type APIError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new APIError.
func NewAPIError(code, message string, err error) *APIError {
	return &APIError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *APIError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}
