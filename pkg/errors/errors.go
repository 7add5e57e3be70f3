package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrNotFound                = errors.New("resource not found")
	ErrBadRequest              = errors.New("bad request")
	ErrConflict                = errors.New("resource conflict")
	ErrInternal                = errors.New("internal server error")
	ErrValidation              = errors.New("validation error")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrDuplicateKey            = errors.New("duplicate key")
	ErrAlreadyDistributedToday = errors.New("already distributed today")
	ErrNoStockAvailable        = errors.New("no stock available")
	ErrGenerationExhausted     = errors.New("identifier generation exhausted")
	ErrTransactionAborted      = errors.New("transaction aborted")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// Ledger errors

// InsufficientStock is returned when a distribution asks for more units than the batch holds.
func InsufficientStock(requested, available int) *AppError {
	return &AppError{
		Err:        ErrInsufficientStock,
		Code:       "INSUFFICIENT_STOCK",
		Message:    fmt.Sprintf("insufficient stock: requested %d, available %d", requested, available),
		StatusCode: http.StatusBadRequest,
		Details: map[string]string{
			"requested": fmt.Sprint(requested),
			"available": fmt.Sprint(available),
		},
	}
}

func DuplicateKey(message string) *AppError {
	return &AppError{
		Err:        ErrDuplicateKey,
		Code:       "DUPLICATE_KEY",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func AlreadyDistributedToday() *AppError {
	return &AppError{
		Err:        ErrAlreadyDistributedToday,
		Code:       "ALREADY_DISTRIBUTED_TODAY",
		Message:    "Student has already received a pad today",
		StatusCode: http.StatusBadRequest,
	}
}

// NoStockAvailable names the location when the caller restricted the search to one.
func NoStockAvailable(location string) *AppError {
	msg := "No pads available in stock"
	if location != "" {
		msg = fmt.Sprintf("No pads available in %s", location)
	}
	return &AppError{
		Err:        ErrNoStockAvailable,
		Code:       "NO_STOCK_AVAILABLE",
		Message:    msg,
		StatusCode: http.StatusBadRequest,
	}
}

func GenerationExhausted(attempts int) *AppError {
	return &AppError{
		Err:        ErrGenerationExhausted,
		Code:       "GENERATION_EXHAUSTED",
		Message:    fmt.Sprintf("failed to generate a unique batch id after %d attempts", attempts),
		StatusCode: http.StatusInternalServerError,
	}
}

// TransactionAborted keeps the underlying cause reachable through errors.Is.
func TransactionAborted(cause error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %w", ErrTransactionAborted, cause),
		Code:       "TRANSACTION_ABORTED",
		Message:    "transaction aborted",
		StatusCode: http.StatusInternalServerError,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
