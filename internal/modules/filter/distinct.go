// Package filter provides implementations for filter modules.
// This file implements the "distinct" filter, which removes duplicate
// records while preserving first-seen order.
package filter

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/tablefilter/runtime/internal/logger"
)

// DefaultDistinctField is the deduplication field when none is configured.
const DefaultDistinctField = "value"

// DistinctConfig represents the configuration for a distinct filter.
type DistinctConfig struct {
	// Field is the record field used as the deduplication key (default "value").
	Field string `json:"field,omitempty"`
}

// DistinctModule removes records whose key field repeats an earlier
// record's value. The first occurrence wins; relative order of kept
// records is unchanged.
type DistinctModule struct {
	field string
}

// NewDistinctFromConfig creates a new distinct filter module from configuration.
func NewDistinctFromConfig(config DistinctConfig) (*DistinctModule, error) {
	field := config.Field
	if field == "" {
		field = DefaultDistinctField
	}

	logger.Debug("distinct filter module initialized",
		slog.String("field", field),
	)

	return &DistinctModule{field: field}, nil
}

// ParseDistinctConfig parses a raw configuration map into DistinctConfig.
func ParseDistinctConfig(config map[string]interface{}) (DistinctConfig, error) {
	var cfg DistinctConfig

	if field, ok := config["field"].(string); ok {
		cfg.Field = field
	}

	return cfg, nil
}

// Process implements the filter.Module interface.
// It drops records whose key field value has already been seen.
func (m *DistinctModule) Process(ctx context.Context, records []map[string]interface{}) ([]map[string]interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result := make([]map[string]interface{}, 0, len(records))
	// nil is a valid key and dedupes like any other value.
	seen := make(map[interface{}]bool, len(records))

	for i, record := range records {
		key := record[m.field]
		// Slices and maps cannot be used as map keys; an upstream script
		// or mapping filter can legally produce them.
		if key != nil && !reflect.TypeOf(key).Comparable() {
			return nil, fmt.Errorf("record %d field %q has non-comparable value of type %T; cannot deduplicate", i, m.field, key)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, record)
	}

	if dropped := len(records) - len(result); dropped > 0 {
		logger.Debug("distinct filter dropped duplicates",
			slog.String("field", m.field),
			slog.Int("dropped", dropped),
		)
	}

	return result, nil
}

// Verify interface compliance at compile time
var _ Module = (*DistinctModule)(nil)
