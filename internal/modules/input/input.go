// Package input provides implementations for source modules.
// Source modules are responsible for loading tabular data into records.
package input

import (
	"context"
)

// Module represents a source module that loads tabular data.
type Module interface {
	// Fetch loads the table and returns it as a slice of records.
	// The context can be used to cancel long-running operations.
	Fetch(ctx context.Context) ([]map[string]interface{}, error)
	// Close releases any resources held by the module.
	Close() error
}

// HeadersProvider is an optional interface for source modules that know
// their column set. The executor uses it to validate filter column
// references against the table header before any filtering runs.
type HeadersProvider interface {
	// Headers returns the column names of the loaded table in file order.
	// Only valid after a successful Fetch.
	Headers() []string
}
