// Package filter provides implementations for filter modules.
// Mapping module renames and copies record fields into a new shape.
package filter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tablefilter/runtime/internal/logger"
)

// Error codes for mapping module
const (
	ErrCodeInvalidMapping = "INVALID_MAPPING"
	ErrCodeMissingField   = "MISSING_FIELD"
)

// OnMissing behavior constants
const (
	OnMissingSetNull    = "setNull"
	OnMissingSkipField  = "skipField"
	OnMissingUseDefault = "useDefault"
	OnMissingFail       = "fail"
)

// ErrInvalidMapping is returned when a mapping configuration is invalid
var ErrInvalidMapping = errors.New("invalid mapping configuration")

// FieldMapping represents a single field mapping configuration.
type FieldMapping struct {
	// Source is the input field name to read.
	Source string `json:"source"`
	// Target is the output field name to write.
	Target string `json:"target"`
	// DefaultValue is used when the source is missing and OnMissing is "useDefault".
	DefaultValue interface{} `json:"defaultValue,omitempty"`
	// OnMissing controls missing-source behavior: "setNull" (default),
	// "skipField", "useDefault", "fail".
	OnMissing string `json:"onMissing,omitempty"`
}

// MappingModule reshapes records by copying source fields to target
// fields. Each output record contains only the mapped fields.
type MappingModule struct {
	mappings []FieldMapping
	onError  string
}

// MappingError carries structured context for mapping failures.
type MappingError struct {
	Code         string
	Message      string
	SourceField  string
	TargetField  string
	RecordIndex  int
	MappingIndex int
}

func (e *MappingError) Error() string {
	return e.Message
}

// NewMappingFromConfig creates a new mapping filter module from configuration.
// It validates the mappings and returns an error if any mapping is invalid.
func NewMappingFromConfig(mappings []FieldMapping, onError string) (*MappingModule, error) {
	if onError == "" {
		onError = OnErrorFail
	}
	if onError != OnErrorFail && onError != OnErrorSkip && onError != OnErrorLog {
		onError = OnErrorFail
	}

	validated := make([]FieldMapping, 0, len(mappings))
	for i, m := range mappings {
		if m.Source == "" || m.Target == "" {
			return nil, fmt.Errorf("%w at index %d: mapping must have both source and target fields", ErrInvalidMapping, i)
		}
		if m.OnMissing == "" {
			m.OnMissing = OnMissingSetNull
		}
		validated = append(validated, m)
	}

	logger.Debug("mapping module initialized",
		slog.Int("mapping_count", len(validated)),
		slog.String("on_error", onError),
	)

	return &MappingModule{
		mappings: validated,
		onError:  onError,
	}, nil
}

// ParseFieldMappings parses raw mapping configuration into FieldMapping structs.
// Accepts []FieldMapping or []interface{} decoded from JSON/YAML.
func ParseFieldMappings(raw interface{}) ([]FieldMapping, error) {
	if raw == nil {
		return []FieldMapping{}, nil
	}

	switch v := raw.(type) {
	case []FieldMapping:
		return v, nil
	case []interface{}:
		mappings := make([]FieldMapping, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("mapping at index %d must be an object", i)
			}
			mapping := FieldMapping{}
			if source, okSrc := m["source"].(string); okSrc {
				mapping.Source = source
			}
			if target, okTgt := m["target"].(string); okTgt {
				mapping.Target = target
			}
			if defaultValue, okDef := m["defaultValue"]; okDef {
				mapping.DefaultValue = defaultValue
			}
			if onMissing, okMiss := m["onMissing"].(string); okMiss {
				mapping.OnMissing = onMissing
			}
			mappings = append(mappings, mapping)
		}
		return mappings, nil
	default:
		return nil, fmt.Errorf("mappings must be an array")
	}
}

// ValidateColumns checks every mapping source against the table header.
func (m *MappingModule) ValidateColumns(headers []string) error {
	columns := make([]string, 0, len(m.mappings))
	for _, mapping := range m.mappings {
		// Mappings that tolerate missing sources do not pin a column.
		if mapping.OnMissing == OnMissingFail {
			columns = append(columns, mapping.Source)
		}
	}
	return validateColumns(columns, headers)
}

// Process applies field mappings to the input records.
// Each output record is a fresh map holding only the mapped fields.
func (m *MappingModule) Process(ctx context.Context, records []map[string]interface{}) ([]map[string]interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if records == nil {
		return []map[string]interface{}{}, nil
	}

	result := make([]map[string]interface{}, 0, len(records))

	for recordIdx, record := range records {
		if recordIdx > 0 && recordIdx%100 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		targetRecord, err := m.processRecord(record, recordIdx)
		if err != nil {
			switch m.onError {
			case OnErrorFail:
				return nil, err
			case OnErrorSkip:
				logger.Warn("skipping record due to mapping error",
					slog.Int("record_index", recordIdx),
					slog.String("error", err.Error()),
				)
				continue
			case OnErrorLog:
				logger.Error("mapping error (continuing)",
					slog.Int("record_index", recordIdx),
					slog.String("error", err.Error()),
				)
				result = append(result, targetRecord)
				continue
			}
		}
		result = append(result, targetRecord)
	}

	return result, nil
}

// processRecord applies all mappings to a single record.
func (m *MappingModule) processRecord(record map[string]interface{}, recordIdx int) (map[string]interface{}, error) {
	target := make(map[string]interface{}, len(m.mappings))

	for mappingIdx, mapping := range m.mappings {
		value, found := record[mapping.Source]

		if !found {
			switch mapping.OnMissing {
			case OnMissingSetNull:
				value = nil
			case OnMissingSkipField:
				continue
			case OnMissingUseDefault:
				value = mapping.DefaultValue
			case OnMissingFail:
				return target, &MappingError{
					Code: ErrCodeMissingField,
					Message: fmt.Sprintf("missing required field %q for target %q at record %d, mapping %d",
						mapping.Source, mapping.Target, recordIdx, mappingIdx),
					SourceField:  mapping.Source,
					TargetField:  mapping.Target,
					RecordIndex:  recordIdx,
					MappingIndex: mappingIdx,
				}
			}
		}

		target[mapping.Target] = value
	}

	return target, nil
}

// Verify interface compliance at compile time
var (
	_ Module          = (*MappingModule)(nil)
	_ ColumnValidator = (*MappingModule)(nil)
)
