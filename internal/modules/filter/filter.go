// Package filter provides implementations for filter modules.
// Filter modules select, project, and transform records between the
// source and the output.
package filter

import "context"

// Module represents a filter module that transforms records.
type Module interface {
	// Process transforms the input records.
	// The context can be used to cancel long-running operations.
	Process(ctx context.Context, records []map[string]interface{}) ([]map[string]interface{}, error)
}

// ColumnValidator is an optional interface for filter modules that
// reference table columns by name. The executor checks configured
// columns against the table header after loading, so a bad column name
// fails before any record is processed.
type ColumnValidator interface {
	// ValidateColumns returns an error if any configured column is
	// absent from the given table header.
	ValidateColumns(headers []string) error
}

// OnError behavior constants shared by filter modules.
const (
	OnErrorFail = "fail"
	OnErrorSkip = "skip"
	OnErrorLog  = "log"
)
