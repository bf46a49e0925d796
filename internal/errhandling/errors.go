// Package errhandling provides error types and classification utilities.
// It defines the error taxonomy of the runtime: load errors (not-found, IO,
// parse) and schema errors (referenced column missing from the table header).
// All classified errors are fatal; the pipeline never retries.
package errhandling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ErrorCategory represents the type/category of an error.
type ErrorCategory string

// Error categories for classification.
const (
	// CategoryNotFound represents a missing input file.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryIO represents a read failure on an existing input.
	CategoryIO ErrorCategory = "io"

	// CategoryParse represents malformed delimited text or query configuration.
	CategoryParse ErrorCategory = "parse"

	// CategorySchema represents a referenced column missing from the table header.
	CategorySchema ErrorCategory = "schema"

	// CategoryCanceled represents a user-initiated cancellation.
	CategoryCanceled ErrorCategory = "canceled"

	// CategoryUnknown represents unclassified errors.
	CategoryUnknown ErrorCategory = "unknown"
)

// ClassifiedError wraps an error with classification metadata.
type ClassifiedError struct {
	// Category is the error classification category.
	Category ErrorCategory

	// Message is a human-readable error message.
	Message string

	// OriginalErr is the underlying error that was classified.
	OriginalErr error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Category, e.Message)
}

// Unwrap returns the original error for use with errors.Is and errors.As.
func (e *ClassifiedError) Unwrap() error {
	return e.OriginalErr
}

// MissingColumnError is returned when a filter references a column that is
// not present in the loaded table header. It is detected once at schema
// validation, before any row is scanned.
type MissingColumnError struct {
	// Column is the referenced column name.
	Column string
	// Available is the table header, for actionable error messages.
	Available []string
}

// Error implements the error interface.
func (e *MissingColumnError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("column %q not found in table header", e.Column)
	}
	return fmt.Sprintf("column %q not found in table header (have: %s)",
		e.Column, strings.Join(e.Available, ", "))
}

// NewMissingColumnError creates a MissingColumnError wrapped in a schema
// ClassifiedError.
func NewMissingColumnError(column string, available []string) *ClassifiedError {
	original := &MissingColumnError{Column: column, Available: available}
	return &ClassifiedError{
		Category:    CategorySchema,
		Message:     original.Error(),
		OriginalErr: original,
	}
}

// ClassifyError classifies any error into a ClassifiedError.
// Already classified errors are returned as-is.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return &ClassifiedError{
			Category: CategoryUnknown,
			Message:  "nil error",
		}
	}

	// Check if already classified
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	var missing *MissingColumnError
	if errors.As(err, &missing) {
		return &ClassifiedError{
			Category:    CategorySchema,
			Message:     missing.Error(),
			OriginalErr: err,
		}
	}

	if errors.Is(err, fs.ErrNotExist) {
		return &ClassifiedError{
			Category:    CategoryNotFound,
			Message:     err.Error(),
			OriginalErr: err,
		}
	}

	if errors.Is(err, fs.ErrPermission) {
		return &ClassifiedError{
			Category:    CategoryIO,
			Message:     err.Error(),
			OriginalErr: err,
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ClassifiedError{
			Category:    CategoryCanceled,
			Message:     "execution canceled",
			OriginalErr: err,
		}
	}

	return &ClassifiedError{
		Category:    CategoryUnknown,
		Message:     err.Error(),
		OriginalErr: err,
	}
}

// GetErrorCategory returns the error category for a given error.
// Returns CategoryUnknown for nil or unclassified errors.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}
	return ClassifyError(err).Category
}

// IsSchemaError returns true if the error is a schema (missing column) error.
func IsSchemaError(err error) bool {
	return GetErrorCategory(err) == CategorySchema
}

// IsNotFound returns true if the error represents a missing input file.
func IsNotFound(err error) bool {
	return GetErrorCategory(err) == CategoryNotFound
}

// NewNotFoundError creates a ClassifiedError for a missing input file.
func NewNotFoundError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryNotFound,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewIOError creates a ClassifiedError for read failures.
func NewIOError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryIO,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// NewParseError creates a ClassifiedError for malformed input.
func NewParseError(message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    CategoryParse,
		Message:     message,
		OriginalErr: originalErr,
	}
}
