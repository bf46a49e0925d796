package errhandling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCategory
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: CategoryUnknown,
		},
		{
			name:     "file not found",
			err:      fmt.Errorf("open table: %w", fs.ErrNotExist),
			expected: CategoryNotFound,
		},
		{
			name:     "permission denied",
			err:      fmt.Errorf("open table: %w", fs.ErrPermission),
			expected: CategoryIO,
		},
		{
			name:     "context canceled",
			err:      context.Canceled,
			expected: CategoryCanceled,
		},
		{
			name:     "deadline exceeded",
			err:      context.DeadlineExceeded,
			expected: CategoryCanceled,
		},
		{
			name:     "missing column",
			err:      &MissingColumnError{Column: "Bank"},
			expected: CategorySchema,
		},
		{
			name:     "generic error",
			err:      errors.New("something broke"),
			expected: CategoryUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			if got.Category != tt.expected {
				t.Errorf("ClassifyError() category = %v, want %v", got.Category, tt.expected)
			}
		})
	}
}

func TestClassifyErrorPreservesClassified(t *testing.T) {
	original := NewParseError("bad delimiter", errors.New("row 3"))
	wrapped := fmt.Errorf("loading: %w", original)

	got := ClassifyError(wrapped)
	if got != original {
		t.Errorf("ClassifyError() should return the existing ClassifiedError unchanged")
	}
	if got.Category != CategoryParse {
		t.Errorf("category = %v, want %v", got.Category, CategoryParse)
	}
}

func TestMissingColumnError(t *testing.T) {
	err := &MissingColumnError{
		Column:    "Network 5",
		Available: []string{"Credit Card Name", "Bank"},
	}
	msg := err.Error()
	if !strings.Contains(msg, "Network 5") {
		t.Errorf("message %q should contain the missing column name", msg)
	}
	if !strings.Contains(msg, "Credit Card Name") {
		t.Errorf("message %q should list available columns", msg)
	}
}

func TestNewMissingColumnError(t *testing.T) {
	classified := NewMissingColumnError("Bank", []string{"Name"})

	if !IsSchemaError(classified) {
		t.Error("IsSchemaError() = false, want true")
	}

	var missing *MissingColumnError
	if !errors.As(classified, &missing) {
		t.Fatal("errors.As() should find the wrapped MissingColumnError")
	}
	if missing.Column != "Bank" {
		t.Errorf("Column = %q, want %q", missing.Column, "Bank")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(NewNotFoundError("no such file", fs.ErrNotExist)) {
		t.Error("IsNotFound() = false for not-found error")
	}
	if IsNotFound(errors.New("other")) {
		t.Error("IsNotFound() = true for generic error")
	}
}

func TestClassifiedErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	classified := NewIOError("read failed", inner)
	if !errors.Is(classified, inner) {
		t.Error("errors.Is() should reach the original error")
	}
}
