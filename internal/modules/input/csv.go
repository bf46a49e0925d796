// Package input provides implementations for source modules.
// CSVInput loads delimited text files into records.
package input

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"
	"unicode/utf8"

	"github.com/tablefilter/runtime/internal/errhandling"
	"github.com/tablefilter/runtime/internal/logger"
	"github.com/tablefilter/runtime/internal/pathutil"
	"github.com/tablefilter/runtime/pkg/query"
)

// Default configuration values for the csvFile source
const (
	defaultDelimiter = ","
)

// Error types for the csvFile source module
var (
	ErrCSVNilConfig    = errors.New("csvFile source configuration is nil")
	ErrCSVMissingPath  = errors.New("path is required for csvFile source")
	ErrCSVBadDelimiter = errors.New("delimiter must be a single character")
)

// CSVInputConfig holds configuration for the csvFile source module.
type CSVInputConfig struct {
	// Path is the location of the delimited text file.
	Path string `json:"path"`
	// Delimiter is the column separator (single character, default ",").
	Delimiter string `json:"delimiter"`
}

// CSVInput implements a source module that loads a delimited text file.
// The first row is the header; every data cell is loaded as a string,
// with empty cells loaded as nil. Rows shorter than the header are
// padded with nil cells; rows longer than the header are a parse error.
type CSVInput struct {
	config  CSVInputConfig
	comma   rune
	headers []string
}

// NewCSVInputFromConfig creates a new csvFile source module from configuration.
func NewCSVInputFromConfig(cfg *query.ModuleConfig) (*CSVInput, error) {
	if cfg == nil {
		return nil, ErrCSVNilConfig
	}

	config := parseCSVInputConfig(cfg.Config)

	if config.Path == "" {
		return nil, ErrCSVMissingPath
	}

	if err := pathutil.ValidateFilePath(config.Path); err != nil {
		return nil, fmt.Errorf("invalid source path: %w", err)
	}

	if config.Delimiter == "" {
		config.Delimiter = defaultDelimiter
	}
	if utf8.RuneCountInString(config.Delimiter) != 1 {
		return nil, fmt.Errorf("%w: got %q", ErrCSVBadDelimiter, config.Delimiter)
	}
	comma, _ := utf8.DecodeRuneInString(config.Delimiter)

	logger.Debug("csvFile source module created",
		"path", config.Path,
		"delimiter", config.Delimiter,
	)

	return &CSVInput{
		config: config,
		comma:  comma,
	}, nil
}

// parseCSVInputConfig parses the raw configuration map into CSVInputConfig.
func parseCSVInputConfig(cfg map[string]interface{}) CSVInputConfig {
	config := CSVInputConfig{}

	if v, ok := cfg["path"].(string); ok {
		config.Path = v
	}
	if v, ok := cfg["delimiter"].(string); ok {
		config.Delimiter = v
	}

	return config
}

// Fetch loads the delimited file into records.
func (c *CSVInput) Fetch(ctx context.Context) ([]map[string]interface{}, error) {
	startTime := time.Now()

	logger.Info("csvFile source fetch started",
		"module_type", "csvFile",
		"path", c.config.Path,
	)

	file, err := os.Open(c.config.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errhandling.NewNotFoundError(
				fmt.Sprintf("source file not found: %s", c.config.Path), err)
		}
		return nil, errhandling.NewIOError(
			fmt.Sprintf("opening source file %s: %v", c.config.Path, err), err)
	}
	defer func() {
		_ = file.Close()
	}()

	records, err := c.readRecords(ctx, file)

	duration := time.Since(startTime)

	if err != nil {
		logger.Error("csvFile source fetch failed",
			"module_type", "csvFile",
			"path", c.config.Path,
			"duration", duration,
			"error", err.Error(),
		)
		return nil, err
	}

	logger.Info("csvFile source fetch completed",
		"module_type", "csvFile",
		"record_count", len(records),
		"column_count", len(c.headers),
		"duration", duration,
	)

	return records, nil
}

// readRecords reads the header and data rows from the open file.
func (c *CSVInput) readRecords(ctx context.Context, r io.Reader) ([]map[string]interface{}, error) {
	reader := csv.NewReader(r)
	reader.Comma = c.comma
	// Row width is checked against the header, not the first row.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errhandling.NewParseError(
			fmt.Sprintf("empty table: %s has no header row", c.config.Path), err)
	}
	if err != nil {
		return nil, classifyReadError(err, c.config.Path)
	}
	c.headers = header

	var records []map[string]interface{}
	rowNum := 1

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, classifyReadError(err, c.config.Path)
		}
		rowNum++

		if len(row) > len(header) {
			return nil, errhandling.NewParseError(
				fmt.Sprintf("row %d of %s has %d cells, header has %d columns",
					rowNum, c.config.Path, len(row), len(header)), nil)
		}

		record := make(map[string]interface{}, len(header))
		for i, col := range header {
			if i >= len(row) || row[i] == "" {
				// Absent cells load as nil, never as the empty string.
				record[col] = nil
				continue
			}
			record[col] = row[i]
		}

		records = append(records, record)
	}

	return records, nil
}

// classifyReadError wraps a csv reader error into the load error taxonomy.
func classifyReadError(err error, path string) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return errhandling.NewParseError(
			fmt.Sprintf("malformed row in %s: %v", path, err), err)
	}
	return errhandling.NewIOError(
		fmt.Sprintf("reading source file %s: %v", path, err), err)
}

// Headers returns the column names read from the header row.
// Only valid after a successful Fetch.
func (c *CSVInput) Headers() []string {
	return c.headers
}

// Close releases resources (the file handle is scoped to Fetch).
func (c *CSVInput) Close() error {
	return nil
}

// Verify CSVInput implements Module and HeadersProvider
var (
	_ Module          = (*CSVInput)(nil)
	_ HeadersProvider = (*CSVInput)(nil)
)
