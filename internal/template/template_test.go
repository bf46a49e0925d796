package template

import (
	"strings"
	"testing"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		record   map[string]interface{}
		expected string
	}{
		{
			name:     "no variables",
			template: "plain text",
			record:   map[string]interface{}{"value": "x"},
			expected: "plain text",
		},
		{
			name:     "simple substitution",
			template: " {{value}} (Visa Signature)",
			record:   map[string]interface{}{"value": "Card A"},
			expected: " Card A (Visa Signature)",
		},
		{
			name:     "column name with spaces",
			template: "{{Credit Card Name}}",
			record:   map[string]interface{}{"Credit Card Name": "Card B"},
			expected: "Card B",
		},
		{
			name:     "record prefix stripped",
			template: "{{record.value}}",
			record:   map[string]interface{}{"value": "Card C"},
			expected: "Card C",
		},
		{
			name:     "missing field without default",
			template: "[{{missing}}]",
			record:   map[string]interface{}{"value": "x"},
			expected: "[]",
		},
		{
			name:     "missing field with default",
			template: `{{missing | default: "n/a"}}`,
			record:   map[string]interface{}{},
			expected: "n/a",
		},
		{
			name:     "nil value renders empty",
			template: "[{{value}}]",
			record:   map[string]interface{}{"value": nil},
			expected: "[]",
		},
		{
			name:     "nested field",
			template: "{{meta.source}}",
			record: map[string]interface{}{
				"meta": map[string]interface{}{"source": "csv"},
			},
			expected: "csv",
		},
		{
			name:     "multiple variables",
			template: "{{name}} via {{bank}}",
			record:   map[string]interface{}{"name": "Card D", "bank": "ICICI"},
			expected: "Card D via ICICI",
		},
		{
			name:     "numeric value",
			template: "{{count}}",
			record:   map[string]interface{}{"count": float64(3)},
			expected: "3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluator()
			got := e.Evaluate(tt.template, tt.record)
			if got != tt.expected {
				t.Errorf("Evaluate() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestEvaluateUsesCache(t *testing.T) {
	e := NewEvaluator()
	tmpl := "{{value}}"

	first := e.Evaluate(tmpl, map[string]interface{}{"value": "a"})
	second := e.Evaluate(tmpl, map[string]interface{}{"value": "b"})

	if first != "a" || second != "b" {
		t.Errorf("cached template produced wrong results: %q, %q", first, second)
	}
	if len(e.cache) != 1 {
		t.Errorf("cache size = %d, want 1", len(e.cache))
	}
}

func TestGetNestedValue(t *testing.T) {
	record := map[string]interface{}{
		"flat":     "x",
		"a.b":      "dotted-key",
		"nested":   map[string]interface{}{"inner": "y"},
		"nilField": nil,
	}

	tests := []struct {
		name      string
		path      string
		wantValue interface{}
		wantFound bool
	}{
		{"flat key", "flat", "x", true},
		{"top-level key with dot wins over nesting", "a.b", "dotted-key", true},
		{"nested path", "nested.inner", "y", true},
		{"missing path", "nested.absent", nil, false},
		{"empty path", "", nil, false},
		{"nil value is found", "nilField", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := GetNestedValue(record, tt.path)
			if found != tt.wantFound {
				t.Fatalf("found = %v, want %v", found, tt.wantFound)
			}
			if got != tt.wantValue {
				t.Errorf("value = %v, want %v", got, tt.wantValue)
			}
		})
	}
}

func TestValidateSyntax(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    string
		wantErr bool
		errPart string
	}{
		{"empty template", "", false, ""},
		{"plain text", "no variables", false, ""},
		{"valid variable", "{{value}}", false, ""},
		{"valid with default", `{{value | default: "x"}}`, false, ""},
		{"unmatched open", "{{value", true, "unmatched"},
		{"unmatched close", "value}}", true, "unmatched"},
		{"empty braces", "{{}}", true, ErrMsgEmptyVariablePath},
		{"whitespace-only braces", "{{  }}", true, ErrMsgEmptyVariablePath},
		{"reversed pairing", "}}{{", true, "stray"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSyntax(tt.tmpl)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateSyntax(%q) error = %v, wantErr %v", tt.tmpl, err, tt.wantErr)
			}
			if err != nil && tt.errPart != "" && !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("error %q should contain %q", err.Error(), tt.errPart)
			}
		})
	}
}

func TestValueToString(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected string
	}{
		{"nil", nil, ""},
		{"string", "abc", "abc"},
		{"whole float", float64(42), "42"},
		{"fractional float", 1.5, "1.5"},
		{"int", 7, "7"},
		{"bool", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValueToString(tt.value); got != tt.expected {
				t.Errorf("ValueToString(%v) = %q, want %q", tt.value, got, tt.expected)
			}
		})
	}
}
