// Package main provides the CLI entry point for the Tablefilter runtime.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tablefilter/runtime/internal/cli"
	"github.com/tablefilter/runtime/internal/config"
	"github.com/tablefilter/runtime/internal/factory"
	"github.com/tablefilter/runtime/internal/logger"
	"github.com/tablefilter/runtime/internal/pathutil"
	"github.com/tablefilter/runtime/internal/runtime"
	"github.com/tablefilter/runtime/pkg/query"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitParseError      = 2
	ExitRuntimeError    = 3
)

var (
	// Global flags
	verbose bool
	quiet   bool

	// Run command flags
	dryRun    bool
	inputPath string

	// Build information (set via ldflags during build)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitRuntimeError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tablefilter",
	Short: "Tablefilter - Declarative table query runtime",
	Long: `Tablefilter is a CLI tool for running declarative queries over delimited tables.

It parses and validates query configurations (JSON/YAML format), then
executes them according to the defined Source → Filter → Output pattern:
a table is loaded, rows are filtered and projected, and the result is
written as a report.

Examples:
  # Validate a query file
  tablefilter validate query.yaml

  # Run a query
  tablefilter run query.yaml

  # Run against a different table file
  tablefilter run --input other.csv query.yaml`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// Configure logger level based on flags
		if verbose {
			logger.SetLevel(slog.LevelDebug)
		} else if quiet {
			logger.SetLevel(slog.LevelError)
		}
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <query-file>",
	Short: "Validate a query configuration file",
	Long: `Validate a query configuration file against the schema.

Supports both JSON and YAML formats. The format is auto-detected
based on file extension (.json, .yaml, .yml) or content.

Exit codes:
  0 - Configuration is valid
  1 - Validation errors (schema violations)
  2 - Parse errors (invalid JSON/YAML syntax)

Examples:
  tablefilter validate query.json
  tablefilter validate query.yaml
  tablefilter validate --verbose query.json`,
	Args: cobra.ExactArgs(1),
	Run:  runValidate,
}

var runCmd = &cobra.Command{
	Use:   "run <query-file>",
	Short: "Run a query from a configuration file",
	Long: `Run a query defined in the configuration file.

The configuration file is first validated against the schema.
If validation fails, the query will not be executed.

The source table path comes from, in order of precedence: the --input
flag, the INPUT_PATH environment variable, and the path configured in
the query file.

Flags:
  --dry-run      Validate and filter without writing the report
  --input PATH   Override the source table path

Exit codes:
  0 - Query executed successfully
  1 - Validation errors
  2 - Parse errors
  3 - Runtime errors

Examples:
  tablefilter run query.json
  tablefilter run --verbose query.yaml
  tablefilter run --input cards.csv query.yaml
  tablefilter run --dry-run query.json`,
	Args: cobra.ExactArgs(1),
	Run:  runQuery,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version, commit hash, and build date information.",
	Run:   runVersion,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")

	// Run command flags
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and filter without writing the report")
	runCmd.Flags().StringVar(&inputPath, "input", "", "Override the source table path")

	// Add commands
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func runValidate(_ *cobra.Command, args []string) {
	configPath := args[0]

	if !quiet {
		fmt.Fprintf(os.Stderr, "Validating query configuration: %s\n", configPath)
	}

	result := config.ParseConfig(configPath)

	if len(result.ParseErrors) > 0 {
		cli.PrintParseErrors(result.ParseErrors, verbose)
		os.Exit(ExitParseError)
	}

	if len(result.ValidationErrors) > 0 {
		cli.PrintValidationErrors(result.ValidationErrors, verbose, quiet)
		os.Exit(ExitValidationError)
	}

	if !quiet {
		fmt.Fprintf(os.Stderr, "✓ Configuration is valid (format: %s)\n", result.Format)
		if verbose {
			cli.PrintConfigSummary(result.Data)
		}
	}

	os.Exit(ExitSuccess)
}

func runQuery(_ *cobra.Command, args []string) {
	configPath := args[0]

	if !quiet {
		fmt.Fprintf(os.Stderr, "Loading query configuration: %s\n", configPath)
	}

	result := config.ParseConfig(configPath)

	if len(result.ParseErrors) > 0 {
		cli.PrintParseErrors(result.ParseErrors, verbose)
		os.Exit(ExitParseError)
	}

	if len(result.ValidationErrors) > 0 {
		cli.PrintValidationErrors(result.ValidationErrors, verbose, quiet)
		os.Exit(ExitValidationError)
	}

	if !quiet {
		fmt.Fprintf(os.Stderr, "✓ Configuration loaded successfully (format: %s)\n", result.Format)
	}

	q, err := config.ConvertToQuery(result.Data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to convert configuration: %v\n", err)
		os.Exit(ExitRuntimeError)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "  Query: %s (v%s)\n", q.Name, q.Version)
		if q.Description != "" {
			fmt.Fprintf(os.Stderr, "  Description: %s\n", q.Description)
		}
	}

	if err := applyInputOverride(q); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(ExitRuntimeError)
	}

	sourceModule, err := factory.CreateInputModule(q.Source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to create source module: %v\n", err)
		os.Exit(ExitRuntimeError)
	}
	filterModules, err := factory.CreateFilterModules(q.Filters)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to create filter modules: %v\n", err)
		os.Exit(ExitRuntimeError)
	}
	outputModule, err := factory.CreateOutputModule(q.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to create output module: %v\n", err)
		os.Exit(ExitRuntimeError)
	}

	executor := runtime.NewExecutorWithModules(sourceModule, filterModules, outputModule, dryRun)

	if !quiet {
		if dryRun {
			fmt.Fprintln(os.Stderr, "Executing query (dry-run mode - report will not be written)...")
		} else {
			fmt.Fprintln(os.Stderr, "Executing query...")
		}
	}

	execResult, err := executor.Execute(q)

	cli.PrintExecutionResult(execResult, err, cli.OutputOptions{
		Verbose: verbose,
		Quiet:   quiet,
		DryRun:  dryRun,
	})

	if err != nil {
		os.Exit(ExitRuntimeError)
	}

	os.Exit(ExitSuccess)
}

// applyInputOverride resolves the source table path from the --input flag,
// the INPUT_PATH environment variable, and the configured path, and writes
// the winner back into the source module config.
func applyInputOverride(q *query.Query) error {
	if q.Source == nil {
		return nil
	}

	configured, _ := q.Source.Config["path"].(string)
	resolved, err := pathutil.ResolveInputPath(inputPath, configured)
	if err != nil {
		return err
	}
	if resolved != configured {
		if q.Source.Config == nil {
			q.Source.Config = make(map[string]interface{})
		}
		q.Source.Config["path"] = resolved
	}
	return nil
}

func runVersion(_ *cobra.Command, _ []string) {
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Commit: %s\n", commit)
	fmt.Printf("Build Date: %s\n", buildDate)
}
