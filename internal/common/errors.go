package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Pipeline error taxonomy. Fatal sentinels set the upload to error; unit
// conversion problems are validation issues on the match detail, never errors.
var (
	ErrExtraction         = errors.New("extraction failed")          // stage 1 call or parse failure, fatal
	ErrVerification       = errors.New("verification call failed")   // stage 2 hard call failure, fatal
	ErrMergeConflict      = errors.New("unresolvable merge conflict") // defensive, fatal
	ErrCatalogUnavailable = errors.New("biomarker catalog unavailable")

	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDatabase     = errors.New("database error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
