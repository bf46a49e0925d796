// Package cli provides CLI output formatting and display functions.
package cli

import (
	"fmt"
	"os"

	"github.com/tablefilter/runtime/pkg/query"
)

// OutputOptions configures CLI output behavior.
type OutputOptions struct {
	Verbose bool
	Quiet   bool
	DryRun  bool
}

// PrintExecutionResult displays the query execution result.
// Status text goes to stderr; stdout belongs to the report itself.
func PrintExecutionResult(result *query.ExecutionResult, err error, opts OutputOptions) {
	if result == nil {
		fmt.Fprintln(os.Stderr, "✗ No execution result available")
		return
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "✗ Query execution failed")
		if result.Error != nil {
			if result.Error.Module != "" {
				fmt.Fprintf(os.Stderr, "  Module: %s\n", result.Error.Module)
			}
			fmt.Fprintf(os.Stderr, "  Error: %s\n", result.Error.Message)
			if opts.Verbose && result.Error.ErrorCategory != "" {
				fmt.Fprintf(os.Stderr, "  Category: %s\n", result.Error.ErrorCategory)
			}
		}
		return
	}

	if !opts.Quiet {
		if opts.DryRun {
			fmt.Fprintln(os.Stderr, "✓ Query validated (dry-run, no report written)")
		} else {
			fmt.Fprintln(os.Stderr, "✓ Query executed successfully")
		}
		fmt.Fprintf(os.Stderr, "  Rows loaded: %d\n", result.RecordsLoaded)
		fmt.Fprintf(os.Stderr, "  Rows reported: %d\n", result.RecordsReported)
		if opts.Verbose {
			fmt.Fprintf(os.Stderr, "  Duration: %v\n", result.CompletedAt.Sub(result.StartedAt))
		}
	}
}

// PrintConfigSummary prints query name and version if available.
func PrintConfigSummary(data map[string]interface{}) {
	if data == nil {
		return
	}

	q, ok := data["query"].(map[string]interface{})
	if !ok {
		return
	}

	if name, ok := q["name"].(string); ok {
		fmt.Fprintf(os.Stderr, "  Query: %s\n", name)
	}
	if version, ok := q["version"].(string); ok {
		fmt.Fprintf(os.Stderr, "  Version: %s\n", version)
	}
}
