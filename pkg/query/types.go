// Package query provides public types for declarative table queries.
// This package is intended to be importable by external projects that need
// to interact with the Tablefilter runtime.
package query

import "time"

// Query represents a complete query configuration.
// It contains all the modules (Source, Filters, Output) required to load a
// table, filter and project its rows, and report the result.
type Query struct {
	// ID is the unique identifier for this query
	ID string `json:"id"`

	// Name is the human-readable name of the query
	Name string `json:"name"`

	// Description provides additional context about the query
	Description string `json:"description,omitempty"`

	// Version is the query configuration version
	Version string `json:"version"`

	// Source defines the table source module
	Source *ModuleConfig `json:"source"`

	// Filters is an ordered list of row filter/transform modules
	Filters []ModuleConfig `json:"filters,omitempty"`

	// Output defines the reporting module
	Output *ModuleConfig `json:"output"`
}

// ModuleConfig represents the configuration for a query module.
// Modules can be Source, Filter, or Output types.
type ModuleConfig struct {
	// Type identifies the module type (e.g., "csvFile", "anyContains", "console")
	Type string `json:"type"`

	// Config contains the module-specific configuration
	Config map[string]interface{} `json:"config"`
}

// ExecutionResult represents the result of a query execution.
type ExecutionResult struct {
	// QueryID is the ID of the executed query
	QueryID string `json:"queryId"`

	// Status is the execution status ("success", "error")
	Status string `json:"status"`

	// StartedAt is when execution started
	StartedAt time.Time `json:"startedAt"`

	// CompletedAt is when execution completed
	CompletedAt time.Time `json:"completedAt"`

	// RecordsLoaded is the number of rows loaded from the source
	RecordsLoaded int `json:"recordsLoaded"`

	// RecordsReported is the number of result lines written by the output module
	RecordsReported int `json:"recordsReported"`

	// Error contains error details if execution failed
	Error *ExecutionError `json:"error,omitempty"`
}

// ExecutionError contains details about an execution failure.
type ExecutionError struct {
	// Code is the error code
	Code string `json:"code"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Module is the module where the error occurred
	Module string `json:"module,omitempty"`

	// ErrorCategory classifies the failure (not_found, parse, schema, io, unknown)
	ErrorCategory string `json:"errorCategory,omitempty"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`
}
