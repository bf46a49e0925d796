// Package filter provides implementations for filter modules.
// Condition module filters records based on conditional expressions.
package filter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/tablefilter/runtime/internal/logger"
)

// Error codes for condition module
const (
	ErrCodeInvalidExpression = "INVALID_EXPRESSION"
	ErrCodeEvaluationFailed  = "EVALUATION_FAILED"
)

// Common errors for condition module
var (
	// ErrEmptyExpression is reserved for strict validation of empty expressions.
	// Empty expressions currently default to pass-through behavior.
	ErrEmptyExpression = errors.New("expression cannot be empty")
	// ErrInvalidExpression is returned when the expression syntax is invalid
	ErrInvalidExpression = errors.New("invalid expression syntax")
)

// Routing behavior constants
const (
	OnConditionContinue = "continue"
	OnConditionSkip     = "skip"
)

// ConditionConfig represents the configuration for a condition filter module.
type ConditionConfig struct {
	// Expression is the condition expression string (required)
	Expression string `json:"expression"`
	// OnTrue specifies behavior when condition is true: "continue" (default) or "skip"
	OnTrue string `json:"onTrue,omitempty"`
	// OnFalse specifies behavior when condition is false: "continue" or "skip" (default)
	OnFalse string `json:"onFalse,omitempty"`
	// OnError specifies error handling mode: "fail" (default), "skip", "log"
	OnError string `json:"onError,omitempty"`
}

// ConditionModule implements conditional record filtering.
// It evaluates expressions against input records and keeps or drops
// each record accordingly. Record fields are the expression variables,
// so `Bank contains "ICICI"` works directly against loaded rows.
type ConditionModule struct {
	expression string
	onTrue     string
	onFalse    string
	onError    string
	program    *vm.Program
}

// ConditionError carries structured context for condition evaluation failures.
type ConditionError struct {
	Code        string
	Message     string
	Expression  string
	RecordIndex int
}

func (e *ConditionError) Error() string {
	return e.Message
}

func newConditionError(code, message, expression string, recordIdx int) *ConditionError {
	return &ConditionError{
		Code:        code,
		Message:     message,
		Expression:  expression,
		RecordIndex: recordIdx,
	}
}

// NewConditionFromConfig creates a new condition filter module from configuration.
// It validates the configuration and returns an error if invalid.
func NewConditionFromConfig(config ConditionConfig) (*ConditionModule, error) {
	expression := config.Expression
	hasExpression := len(expression) > 0 && !isWhitespaceOnly(expression)

	onTrue := config.OnTrue
	if onTrue == "" {
		onTrue = OnConditionContinue
	}

	onFalse := config.OnFalse
	if onFalse == "" {
		onFalse = OnConditionSkip
	}

	onError := config.OnError
	if onError == "" {
		onError = OnErrorFail
	}
	if onError != OnErrorFail && onError != OnErrorSkip && onError != OnErrorLog {
		logger.Warn("invalid onError value for condition module; defaulting to fail",
			slog.String("on_error", onError),
		)
		onError = OnErrorFail
	}

	// AllowUndefinedVariables() handles missing fields gracefully
	var (
		program *vm.Program
		err     error
	)
	if hasExpression {
		program, err = expr.Compile(expression, expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
		}
	}

	logger.Debug("condition module initialized",
		slog.String("expression", config.Expression),
		slog.String("on_true", onTrue),
		slog.String("on_false", onFalse),
		slog.String("on_error", onError),
	)

	return &ConditionModule{
		expression: config.Expression,
		onTrue:     onTrue,
		onFalse:    onFalse,
		onError:    onError,
		program:    program,
	}, nil
}

// ParseConditionConfig parses a raw configuration map into ConditionConfig.
func ParseConditionConfig(config map[string]interface{}) (ConditionConfig, error) {
	var cfg ConditionConfig

	if expression, ok := config["expression"].(string); ok {
		cfg.Expression = expression
	}
	if onTrue, ok := config["onTrue"].(string); ok {
		cfg.OnTrue = onTrue
	}
	if onFalse, ok := config["onFalse"].(string); ok {
		cfg.OnFalse = onFalse
	}
	if onError, ok := config["onError"].(string); ok {
		cfg.OnError = onError
	}

	return cfg, nil
}

// isWhitespaceOnly checks if a string contains only whitespace characters.
func isWhitespaceOnly(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// Process filters records based on the condition expression.
// For each record the expression is evaluated and the onTrue/onFalse
// behavior applied. An empty expression defaults to "true" so records
// pass through unless onTrue says otherwise.
func (c *ConditionModule) Process(ctx context.Context, records []map[string]interface{}) ([]map[string]interface{}, error) {
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

		conditionResult := true
		if c.program != nil {
			output, err := expr.Run(c.program, record)
			if err != nil {
				condErr := newConditionError(
					ErrCodeEvaluationFailed,
					fmt.Sprintf("condition evaluation failed at record %d: %v", recordIdx, err),
					c.expression,
					recordIdx,
				)

				switch c.onError {
				case OnErrorFail:
					return nil, condErr
				case OnErrorSkip:
					logger.Warn("skipping record due to condition evaluation error",
						slog.Int("record_index", recordIdx),
						slog.String("expression", c.expression),
						slog.String("error", err.Error()),
					)
					continue
				case OnErrorLog:
					logger.Error("condition evaluation error (continuing)",
						slog.Int("record_index", recordIdx),
						slog.String("expression", c.expression),
						slog.String("error", err.Error()),
					)
					continue
				default:
					return nil, condErr
				}
			}

			boolResult, ok := output.(bool)
			if !ok {
				boolResult = toBool(output)
			}
			conditionResult = boolResult
		}

		if c.keepRecord(conditionResult) {
			result = append(result, record)
		}
	}

	return result, nil
}

// keepRecord applies the onTrue/onFalse behavior to the condition result.
func (c *ConditionModule) keepRecord(conditionTrue bool) bool {
	if conditionTrue {
		return c.onTrue == OnConditionContinue
	}
	return c.onFalse == OnConditionContinue
}

// toBool converts a value to boolean.
func toBool(value interface{}) bool {
	if value == nil {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}

// Verify interface compliance at compile time
var _ Module = (*ConditionModule)(nil)
