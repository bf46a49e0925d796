// Package output provides implementations for output modules.
// ConsoleOutput renders the report to standard output.
package output

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tablefilter/runtime/internal/logger"
	"github.com/tablefilter/runtime/internal/template"
	"github.com/tablefilter/runtime/pkg/query"
)

// DefaultLineTemplate is the per-record line when none is configured.
const DefaultLineTemplate = "{{value}}"

// Error types for the console output module
var (
	ErrConsoleNilConfig = errors.New("console output configuration is nil")
)

// ConsoleOutputConfig holds configuration for the console output module.
type ConsoleOutputConfig struct {
	// Header is printed once before any record line, as literal text
	// with no template evaluation. Optional.
	Header string `json:"header,omitempty"`
	// Line is the template rendered once per record,
	// e.g. " {{value}} (Visa Signature)".
	Line string `json:"line,omitempty"`
}

// ConsoleOutput renders records as text lines on standard output.
// The header always prints, so an empty result still produces a
// well-formed report. Log output goes to stderr and never interleaves
// with the report.
type ConsoleOutput struct {
	config    ConsoleOutputConfig
	writer    io.Writer
	evaluator *template.Evaluator
}

// NewConsoleOutputFromConfig creates a new console output module from configuration.
func NewConsoleOutputFromConfig(cfg *query.ModuleConfig) (*ConsoleOutput, error) {
	if cfg == nil {
		return nil, ErrConsoleNilConfig
	}

	config := parseConsoleOutputConfig(cfg.Config)

	if config.Line == "" {
		config.Line = DefaultLineTemplate
	}
	if err := template.ValidateSyntax(config.Line); err != nil {
		return nil, fmt.Errorf("invalid line template: %w", err)
	}

	logger.Debug("console output module created",
		slog.Bool("has_header", config.Header != ""),
		slog.String("line", config.Line),
	)

	return &ConsoleOutput{
		config:    config,
		writer:    os.Stdout,
		evaluator: template.NewEvaluator(),
	}, nil
}

// parseConsoleOutputConfig parses the raw configuration map into ConsoleOutputConfig.
func parseConsoleOutputConfig(cfg map[string]interface{}) ConsoleOutputConfig {
	config := ConsoleOutputConfig{}

	if v, ok := cfg["header"].(string); ok {
		config.Header = v
	}
	if v, ok := cfg["line"].(string); ok {
		config.Line = v
	}

	return config
}

// SetWriter redirects the report, used by tests and the dry-run path.
func (c *ConsoleOutput) SetWriter(w io.Writer) {
	c.writer = w
}

// Send renders the report: the header line first, then one templated
// line per record in input order.
func (c *ConsoleOutput) Send(records []map[string]interface{}) (int, error) {
	if c.config.Header != "" {
		if _, err := fmt.Fprintln(c.writer, c.config.Header); err != nil {
			return 0, fmt.Errorf("writing report header: %w", err)
		}
	}

	for i, record := range records {
		line := c.evaluator.Evaluate(c.config.Line, record)
		if _, err := fmt.Fprintln(c.writer, line); err != nil {
			return i, fmt.Errorf("writing report line %d: %w", i, err)
		}
	}

	logger.Info("console output completed",
		slog.Int("record_count", len(records)),
	)

	return len(records), nil
}

// Close releases resources (no-op; stdout is not owned by the module).
func (c *ConsoleOutput) Close() error {
	return nil
}

// Verify ConsoleOutput implements Module
var _ Module = (*ConsoleOutput)(nil)
