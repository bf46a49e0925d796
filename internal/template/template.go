// Package template provides template evaluation for report line construction.
// It supports variable substitution using {{field}} syntax with optional
// default values, e.g. " {{value}} (Visa Signature)".
package template

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tablefilter/runtime/internal/logger"
)

// Template syntax constants
const (
	// TemplatePrefix is the opening delimiter for template variables
	TemplatePrefix = "{{"
	// TemplateSuffix is the closing delimiter for template variables
	TemplateSuffix = "}}"
)

// Error messages for template evaluation
const (
	ErrMsgInvalidTemplateSyntax = "invalid template syntax"
	ErrMsgEmptyVariablePath     = "empty variable path"
)

// templateVarRegex matches template variables like {{value}} or {{value | default: "n/a"}}
// Group 1: variable path (e.g., "value" or "record.value")
// Group 2: optional default value clause including quotes
// Group 3: the default value itself (may be empty string)
var templateVarRegex = regexp.MustCompile(`\{\{\s*([^|}]+?)(\s*\|\s*default:\s*"([^"]*)")?\s*\}\}`)

// Variable represents a parsed template variable
type Variable struct {
	FullMatch    string // The full matched string including {{ }}
	Path         string // The variable path (e.g., "value" or "Credit Card Name")
	DefaultValue string // Default value if specified (empty string if not)
	HasDefault   bool   // Whether a default value was specified
}

// Evaluator evaluates template strings using record data.
// It supports:
// - Variable substitution: {{field}}
// - Nested field access: {{user.profile.id}}
// - Default values: {{field | default: "fallback"}}
//
// The evaluator caches parsed template variables to avoid re-parsing the same
// template string for every record. The cache is unbounded and not
// thread-safe; each goroutine should use its own Evaluator instance.
type Evaluator struct {
	cache map[string][]Variable
}

// NewEvaluator creates a new template evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		cache: make(map[string][]Variable),
	}
}

// HasVariables checks if a string contains template variables.
func HasVariables(s string) bool {
	return strings.Contains(s, TemplatePrefix) && strings.Contains(s, TemplateSuffix)
}

// ParseVariables extracts all template variables from a template string.
func (e *Evaluator) ParseVariables(template string) []Variable {
	if cached, ok := e.cache[template]; ok {
		return cached
	}

	matches := templateVarRegex.FindAllStringSubmatch(template, -1)
	variables := make([]Variable, 0, len(matches))

	for _, match := range matches {
		if len(match) >= 2 {
			v := Variable{
				FullMatch: match[0],
				Path:      strings.TrimSpace(match[1]),
			}

			// Group 2 is the full default clause, group 3 the value inside quotes.
			if len(match) >= 4 && match[2] != "" {
				v.DefaultValue = match[3]
				v.HasDefault = true
			}

			variables = append(variables, v)
		}
	}

	e.cache[template] = variables

	return variables
}

// Evaluate evaluates a template string using the provided record data.
// Returns the evaluated string with all template variables replaced.
//
// Template syntax:
//   - {{field}} - Access field from record
//   - {{user.name}} - Access nested field using dot notation
//   - {{field | default: "value"}} - Use default if field is missing/null
//
// Missing fields return empty string unless a default is specified.
// Null values are converted to empty string.
func (e *Evaluator) Evaluate(template string, record map[string]interface{}) string {
	if !HasVariables(template) {
		return template
	}

	variables := e.ParseVariables(template)
	if len(variables) == 0 {
		return template
	}

	result := template

	for _, v := range variables {
		value := e.resolveVariable(v, record)
		result = strings.Replace(result, v.FullMatch, value, 1)
	}

	return result
}

// resolveVariable resolves a single template variable using record data.
func (e *Evaluator) resolveVariable(v Variable, record map[string]interface{}) string {
	// Accept an optional "record." prefix for readability in query files.
	path := strings.TrimPrefix(v.Path, "record.")

	value, found := GetNestedValue(record, path)

	if !found || value == nil {
		if v.HasDefault {
			return v.DefaultValue
		}
		logger.Debug("template variable missing, using empty string",
			slog.String("path", v.Path),
		)
		return ""
	}

	return ValueToString(value)
}

// GetNestedValue extracts a value from a record using dot notation.
// A path matching a top-level key is tried first, so column names
// containing dots resolve without nesting.
// Returns the value and a boolean indicating if the field was found.
func GetNestedValue(obj map[string]interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}

	if val, ok := obj[path]; ok {
		return val, true
	}

	parts := strings.Split(path, ".")
	current := interface{}(obj)

	for _, part := range parts {
		switch v := current.(type) {
		case map[string]interface{}:
			if v == nil {
				return nil, false
			}
			val, ok := v[part]
			if !ok {
				return nil, false
			}
			current = val
		default:
			return nil, false
		}
	}

	return current, true
}

// ValueToString converts any value to its string representation.
func ValueToString(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case float64:
		// Format integers without decimal point
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ValidateSyntax validates that a template string has valid syntax.
// Returns an error if the syntax is invalid (e.g., unmatched braces).
func ValidateSyntax(template string) error {
	if template == "" {
		return nil
	}

	openCount := strings.Count(template, TemplatePrefix)
	closeCount := strings.Count(template, TemplateSuffix)

	if openCount != closeCount {
		return fmt.Errorf("%s: unmatched template delimiters (found %d '{{' and %d '}}')",
			ErrMsgInvalidTemplateSyntax, openCount, closeCount)
	}

	if openCount > 0 {
		emptyBracesRegex := regexp.MustCompile(`\{\{\s*\}\}`)
		if emptyBracesRegex.MatchString(template) {
			return fmt.Errorf("%s: %s", ErrMsgInvalidTemplateSyntax, ErrMsgEmptyVariablePath)
		}

		variables := templateVarRegex.FindAllStringSubmatch(template, -1)
		for _, match := range variables {
			if len(match) >= 2 && strings.TrimSpace(match[1]) == "" {
				return fmt.Errorf("%s: %s", ErrMsgInvalidTemplateSyntax, ErrMsgEmptyVariablePath)
			}
		}

		// "}}{{" has balanced counts but invalid pairing; anything the regex
		// cannot consume is a stray delimiter.
		remainder := templateVarRegex.ReplaceAllString(template, "")
		if strings.Contains(remainder, TemplatePrefix) || strings.Contains(remainder, TemplateSuffix) {
			return fmt.Errorf("%s: template delimiters must form valid {{...}} expressions (stray '{{' or '}}' found)",
				ErrMsgInvalidTemplateSyntax)
		}
	}

	return nil
}
