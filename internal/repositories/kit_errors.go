package repositories

import "fmt"

// KitErrorCode enumerates repository error causes for kit stock operations.
type KitErrorCode string

const (
	// KitErrorUnknown represents an unspecified failure.
	KitErrorUnknown KitErrorCode = "kit_unknown"
	// KitErrorInvalidInput indicates the caller supplied invalid arguments.
	KitErrorInvalidInput KitErrorCode = "kit_invalid_input"
	// KitErrorNotFound indicates the SKU does not have a stock record.
	KitErrorNotFound KitErrorCode = "kit_not_found"
	// KitErrorInsufficientStock indicates requested quantity exceeds availability.
	KitErrorInsufficientStock KitErrorCode = "kit_insufficient_stock"
)

// KitError wraps kit-specific failures with machine readable codes.
type KitError struct {
	Op      string
	Code    KitErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *KitError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *KitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewKitError constructs a typed kit error.
func NewKitError(code KitErrorCode, message string, err error) *KitError {
	if message == "" {
		message = string(code)
	}
	return &KitError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
