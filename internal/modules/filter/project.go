// Package filter provides implementations for filter modules.
// This file implements the "project" filter, which narrows each record
// down to a single column.
package filter

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tablefilter/runtime/internal/logger"
)

// DefaultProjectTarget is the output field name when none is configured.
const DefaultProjectTarget = "value"

// ErrProjectMissingColumn is returned when no source column is configured.
var ErrProjectMissingColumn = errors.New("'column' is required and must be a non-empty string")

// ProjectConfig represents the configuration for a project filter.
type ProjectConfig struct {
	// Column is the source column to keep.
	Column string `json:"column"`
	// As is the output field name (default "value").
	As string `json:"as,omitempty"`
}

// ProjectModule narrows each record to a single column. The projected
// cell keeps its loaded value, so a nil cell projects to nil.
type ProjectModule struct {
	column string
	target string
}

// NewProjectFromConfig creates a new project filter module from configuration.
func NewProjectFromConfig(config ProjectConfig) (*ProjectModule, error) {
	if config.Column == "" {
		return nil, ErrProjectMissingColumn
	}

	target := config.As
	if target == "" {
		target = DefaultProjectTarget
	}

	logger.Debug("project filter module initialized",
		slog.String("column", config.Column),
		slog.String("as", target),
	)

	return &ProjectModule{
		column: config.Column,
		target: target,
	}, nil
}

// ParseProjectConfig parses a raw configuration map into ProjectConfig.
func ParseProjectConfig(config map[string]interface{}) (ProjectConfig, error) {
	var cfg ProjectConfig

	column, ok := config["column"].(string)
	if !ok || column == "" {
		return cfg, ErrProjectMissingColumn
	}
	cfg.Column = column

	if as, okAs := config["as"].(string); okAs {
		cfg.As = as
	}

	return cfg, nil
}

// Process implements the filter.Module interface.
// It replaces each record with a single-field record holding the
// projected column value.
func (m *ProjectModule) Process(ctx context.Context, records []map[string]interface{}) ([]map[string]interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result := make([]map[string]interface{}, 0, len(records))

	for _, record := range records {
		result = append(result, map[string]interface{}{
			m.target: record[m.column],
		})
	}

	return result, nil
}

// ValidateColumns checks the projected column against the table header.
func (m *ProjectModule) ValidateColumns(headers []string) error {
	return validateColumns([]string{m.column}, headers)
}

// Verify interface compliance at compile time
var (
	_ Module          = (*ProjectModule)(nil)
	_ ColumnValidator = (*ProjectModule)(nil)
)
