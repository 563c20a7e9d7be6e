package apperror

import "net/http"

// AppError is a custom error type that includes an HTTP status code and an optional underlying error.
type AppError struct {
	Code    int    // HTTP Status Code (e.g., 400, 404)
	Message string // User-facing error message
	Err     error  // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with a status code and message.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
// Wrapping another AppError makes errors.Is match both the new error and the wrapped one,
// which is how narrower errors join a broader category.
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsServerError reports whether the code should be treated as an internal failure.
func (e *AppError) IsServerError() bool {
	return e.Code >= http.StatusInternalServerError
}
