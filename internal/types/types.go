// Package types defines the application-level error type shared by the
// configuration layer, the HTTP service and the CLI.
package types

// ErrorCode classifies an AppError.
type ErrorCode string

const (
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrFileNotFound ErrorCode = "FILE_NOT_FOUND"
	ErrConfig       ErrorCode = "CONFIG_ERROR"
	ErrStorage      ErrorCode = "STORAGE_ERROR"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
	ErrTranslation  ErrorCode = "TRANSLATION_ERROR"
	ErrNetwork      ErrorCode = "NETWORK_ERROR"
	ErrDownload     ErrorCode = "DOWNLOAD_ERROR"
)

// AppError is an error with a code and optional details.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for AppError
func (e *AppError) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError with the given code, message, and optional cause
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// NewAppErrorWithDetails creates a new AppError with details
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Details: details, Cause: cause}
}
