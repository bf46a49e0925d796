package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAMLQuery = `
schemaVersion: "1.0.0"
query:
  name: visa-signature-cards
  version: "1.0.0"
  source:
    type: csvFile
    path: cards.csv
  filters:
    - type: anyContains
      columns: ["Network 1", "Network 2"]
      value: visa signature
  output:
    type: console
    header: "Matching Credit Cards:"
`

const validJSONQuery = `{
  "schemaVersion": "1.0.0",
  "query": {
    "name": "visa-signature-cards",
    "version": "1.0.0",
    "source": {"type": "csvFile", "path": "cards.csv"},
    "output": {"type": "console"}
  }
}`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestParseYAMLString(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantValid bool
		errType   string
	}{
		{"valid yaml", validYAMLQuery, true, ""},
		{"empty content", "", false, ErrorTypeSyntax},
		{"whitespace only", "   \n  ", false, ErrorTypeSyntax},
		{"scalar document", "just a string", false, ErrorTypeFormat},
		{"list document", "- a\n- b", false, ErrorTypeFormat},
		{"broken indentation", "a:\n  b: 1\n c: 2", false, ErrorTypeSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseYAMLString(tt.content)
			if result.IsValid() != tt.wantValid {
				t.Fatalf("IsValid() = %v, want %v (errors: %v)", result.IsValid(), tt.wantValid, result.Errors)
			}
			if !tt.wantValid && result.Errors[0].Type != tt.errType {
				t.Errorf("error type = %q, want %q", result.Errors[0].Type, tt.errType)
			}
		})
	}
}

func TestParseJSONString(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantValid bool
	}{
		{"valid json", validJSONQuery, true},
		{"empty content", "", false},
		{"syntax error", `{"query":`, false},
		{"array root", `[1, 2]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseJSONString(tt.content)
			if result.IsValid() != tt.wantValid {
				t.Errorf("IsValid() = %v, want %v (errors: %v)", result.IsValid(), tt.wantValid, result.Errors)
			}
		})
	}
}

func TestParseJSONStringSyntaxErrorLocation(t *testing.T) {
	result := ParseJSONString("{\n  \"a\": ,\n}")
	if result.IsValid() {
		t.Fatal("expected a syntax error")
	}
	if result.Errors[0].Line != 2 {
		t.Errorf("error line = %d, want 2", result.Errors[0].Line)
	}
}

func TestParseConfigAutoDetect(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		content    string
		wantFormat string
	}{
		{"yaml extension", "query.yaml", validYAMLQuery, "yaml"},
		{"yml extension", "query.yml", validYAMLQuery, "yaml"},
		{"json extension", "query.json", validJSONQuery, "json"},
		{"no extension yaml content", "query", validYAMLQuery, "yaml"},
		{"no extension json content", "query", validJSONQuery, "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, tt.file, tt.content)
			result := ParseConfig(path)
			if !result.IsValid() {
				t.Fatalf("ParseConfig() errors = %v", result.AllErrors())
			}
			if result.Format != tt.wantFormat {
				t.Errorf("Format = %q, want %q", result.Format, tt.wantFormat)
			}
		})
	}
}

func TestParseConfigMissingFile(t *testing.T) {
	result := ParseConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if result.IsValid() {
		t.Fatal("expected an error for missing file")
	}
	if result.ParseErrors[0].Type != ErrorTypeIO {
		t.Errorf("error type = %q, want %q", result.ParseErrors[0].Type, ErrorTypeIO)
	}
}

func TestParseConfigStringSchemaFailure(t *testing.T) {
	// Parses fine but violates the schema (no source/output).
	content := `
schemaVersion: "1.0.0"
query:
  name: incomplete
  version: "1.0.0"
`
	result := ParseConfigString(content, "yaml")
	if len(result.ParseErrors) != 0 {
		t.Fatalf("unexpected parse errors: %v", result.ParseErrors)
	}
	if len(result.ValidationErrors) == 0 {
		t.Fatal("expected validation errors for missing source/output")
	}
}

func TestParseErrorMessage(t *testing.T) {
	err := ParseError{Path: "q.yaml", Line: 3, Column: 7, Message: "bad"}
	msg := err.Error()
	for _, part := range []string{"q.yaml", "line 3", "column 7", "bad"} {
		if !strings.Contains(msg, part) {
			t.Errorf("message %q should contain %q", msg, part)
		}
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"a.yaml", "yaml"},
		{"a.YML", "yaml"},
		{"a.json", "json"},
		{"a.txt", ""},
		{"a", ""},
	}
	for _, tt := range tests {
		if got := DetectFormat(tt.path); got != tt.want {
			t.Errorf("DetectFormat(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
