// Package filter provides implementations for filter modules.
// This file implements the "anyContains" and "contains" filters, which
// select rows by case-insensitive substring match against table cells.
package filter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tablefilter/runtime/internal/errhandling"
	"github.com/tablefilter/runtime/internal/logger"
)

// Common errors for the match filters
var (
	ErrMatchMissingColumns = errors.New("'columns' is required and must be a non-empty array of strings")
	ErrMatchMissingColumn  = errors.New("'column' is required and must be a non-empty string")
	ErrMatchMissingValue   = errors.New("'value' is required and must be a non-empty string")
)

// AnyContainsConfig represents the configuration for an anyContains filter.
type AnyContainsConfig struct {
	// Columns are the column names scanned for a match, in order.
	Columns []string `json:"columns"`
	// Value is the substring to search for (matched case-insensitively).
	Value string `json:"value"`
}

// AnyContainsModule selects rows where at least one of the configured
// columns contains the search value. Matching is case-insensitive
// substring containment; nil cells and non-string cells never match.
type AnyContainsModule struct {
	columns []string
	needle  string
}

// NewAnyContainsFromConfig creates a new anyContains filter module from configuration.
func NewAnyContainsFromConfig(config AnyContainsConfig) (*AnyContainsModule, error) {
	if len(config.Columns) == 0 {
		return nil, ErrMatchMissingColumns
	}
	if config.Value == "" {
		return nil, ErrMatchMissingValue
	}

	logger.Debug("anyContains filter module initialized",
		slog.Int("column_count", len(config.Columns)),
		slog.String("value", config.Value),
	)

	return &AnyContainsModule{
		columns: config.Columns,
		// Lowered once so each cell comparison only folds one side.
		needle: strings.ToLower(config.Value),
	}, nil
}

// ParseAnyContainsConfig parses a raw configuration map into AnyContainsConfig.
func ParseAnyContainsConfig(config map[string]interface{}) (AnyContainsConfig, error) {
	var cfg AnyContainsConfig

	rawColumns, ok := config["columns"].([]interface{})
	if !ok || len(rawColumns) == 0 {
		return cfg, ErrMatchMissingColumns
	}
	for i, raw := range rawColumns {
		column, okStr := raw.(string)
		if !okStr || column == "" {
			return cfg, fmt.Errorf("column at index %d must be a non-empty string", i)
		}
		cfg.Columns = append(cfg.Columns, column)
	}

	value, ok := config["value"].(string)
	if !ok || value == "" {
		return cfg, ErrMatchMissingValue
	}
	cfg.Value = value

	return cfg, nil
}

// Process implements the filter.Module interface.
// It keeps rows where any configured column matches the search value.
func (m *AnyContainsModule) Process(ctx context.Context, records []map[string]interface{}) ([]map[string]interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result := make([]map[string]interface{}, 0, len(records))

	for i, record := range records {
		if i > 0 && i%100 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		for _, column := range m.columns {
			if cellContains(record[column], m.needle) {
				result = append(result, record)
				break
			}
		}
	}

	return result, nil
}

// ValidateColumns checks the configured columns against the table header.
func (m *AnyContainsModule) ValidateColumns(headers []string) error {
	return validateColumns(m.columns, headers)
}

// ContainsConfig represents the configuration for a contains filter.
type ContainsConfig struct {
	// Column is the single column name scanned for a match.
	Column string `json:"column"`
	// Value is the substring to search for (matched case-insensitively).
	Value string `json:"value"`
}

// ContainsModule selects rows where a single column contains the
// search value. Matching semantics are identical to anyContains.
type ContainsModule struct {
	column string
	needle string
}

// NewContainsFromConfig creates a new contains filter module from configuration.
func NewContainsFromConfig(config ContainsConfig) (*ContainsModule, error) {
	if config.Column == "" {
		return nil, ErrMatchMissingColumn
	}
	if config.Value == "" {
		return nil, ErrMatchMissingValue
	}

	logger.Debug("contains filter module initialized",
		slog.String("column", config.Column),
		slog.String("value", config.Value),
	)

	return &ContainsModule{
		column: config.Column,
		needle: strings.ToLower(config.Value),
	}, nil
}

// ParseContainsConfig parses a raw configuration map into ContainsConfig.
func ParseContainsConfig(config map[string]interface{}) (ContainsConfig, error) {
	var cfg ContainsConfig

	column, ok := config["column"].(string)
	if !ok || column == "" {
		return cfg, ErrMatchMissingColumn
	}
	cfg.Column = column

	value, ok := config["value"].(string)
	if !ok || value == "" {
		return cfg, ErrMatchMissingValue
	}
	cfg.Value = value

	return cfg, nil
}

// Process implements the filter.Module interface.
// It keeps rows where the configured column matches the search value.
func (m *ContainsModule) Process(ctx context.Context, records []map[string]interface{}) ([]map[string]interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result := make([]map[string]interface{}, 0, len(records))

	for i, record := range records {
		if i > 0 && i%100 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		if cellContains(record[m.column], m.needle) {
			result = append(result, record)
		}
	}

	return result, nil
}

// ValidateColumns checks the configured column against the table header.
func (m *ContainsModule) ValidateColumns(headers []string) error {
	return validateColumns([]string{m.column}, headers)
}

// cellContains reports whether a cell value contains the lowered needle.
// Nil cells and non-string cells never match and never error.
func cellContains(value interface{}, needle string) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(s), needle)
}

// validateColumns checks every referenced column exists in the header.
func validateColumns(columns, headers []string) error {
	have := make(map[string]bool, len(headers))
	for _, h := range headers {
		have[h] = true
	}
	for _, column := range columns {
		if !have[column] {
			return errhandling.NewMissingColumnError(column, headers)
		}
	}
	return nil
}

// Verify interface compliance at compile time
var (
	_ Module          = (*AnyContainsModule)(nil)
	_ ColumnValidator = (*AnyContainsModule)(nil)
	_ Module          = (*ContainsModule)(nil)
	_ ColumnValidator = (*ContainsModule)(nil)
)
