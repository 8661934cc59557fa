// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotConfigured      = errors.New("not configured")
	ErrSymbolNotFound     = errors.New("symbol not found")
	ErrReportNotFound     = errors.New("earnings report not found")
	ErrUnsupportedFormat  = errors.New("unsupported report format")
	ErrContentTooShort    = errors.New("report content too short")
	ErrShapeMismatch      = errors.New("unexpected payload shape")
	ErrUnknownProvider    = errors.New("unknown provider")
	ErrRetriesExhausted   = errors.New("retries exhausted")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrMembershipUnloaded = errors.New("membership list not loaded")
)

// APIError is returned by the gateway client when a request cannot produce a
// usable response. Status is zero when no HTTP response was received.
type APIError struct {
	Status   int
	Message  string
	Endpoint string
	Err      error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		if e.Err != nil {
			return fmt.Sprintf("api error %s: %s: %v", e.Endpoint, e.Message, e.Err)
		}
		return fmt.Sprintf("api error %s: %s", e.Endpoint, e.Message)
	}
	return fmt.Sprintf("api error %s [%d]: %s", e.Endpoint, e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient: no response at all, or a 5xx.
func (e *APIError) Retryable() bool {
	return e.Status == 0 || (e.Status >= http.StatusInternalServerError && e.Status < 600)
}

// ClientError reports whether the server rejected the request with a 4xx.
func (e *APIError) ClientError() bool {
	return e.Status >= http.StatusBadRequest && e.Status < http.StatusInternalServerError
}

// NewAPIError creates a new APIError.
func NewAPIError(status int, endpoint, message string, err error) *APIError {
	return &APIError{
		Status:   status,
		Message:  message,
		Endpoint: endpoint,
		Err:      err,
	}
}

// IsRetryable reports whether err carries a transient APIError.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

// IsClientError reports whether err carries a 4xx APIError.
func IsClientError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ClientError()
	}
	return false
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrConfigInvalid
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DataError represents a data-related error.
type DataError struct {
	DataType string
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// AnalysisError represents a failure in the report-analysis pipeline.
type AnalysisError struct {
	Symbol string
	Stage  string
	Err    error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis error [%s] %s: %v", e.Symbol, e.Stage, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NewAnalysisError creates a new AnalysisError.
func NewAnalysisError(symbol, stage string, err error) *AnalysisError {
	return &AnalysisError{
		Symbol: symbol,
		Stage:  stage,
		Err:    err,
	}
}

// New returns an error with the given text.
func New(text string) error {
	return errors.New(text)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
