package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

const fixtureTable = `Credit Card Name,Bank,Network 1,Network 2,Network 3,Network 4
Sapphiro Credit Card,ICICI Bank,Visa Signature,Mastercard World,,
Regalia Credit Card,HDFC Bank,Visa Signature,Diners Club,,
Amazon Pay Credit Card,ICICI Bank,Visa Signature,,,
Platinum Chip Credit Card,ICICI Bank,Visa,,,
Sapphiro Credit Card,ICICI Bank,Visa Signature,Mastercard World,,
`

const fixtureQuery = `schemaVersion: "1.0.0"
query:
  name: visa-signature-cards
  version: "1.0.0"
  source:
    type: csvFile
    path: cards.csv
  filters:
    - type: anyContains
      columns: ["Network 1", "Network 2", "Network 3", "Network 4"]
      value: visa signature
    - type: contains
      column: Bank
      value: icici
    - type: project
      column: Credit Card Name
    - type: distinct
  output:
    type: console
    header: "Matching Credit Cards with both 'Visa' and 'Canara':"
    line: " {{value}} (Visa Signature)"
`

// writeFixtures writes a query file and its table into a temp dir and
// returns both paths.
func writeFixtures(t *testing.T) (queryPath, tablePath string) {
	t.Helper()
	dir := t.TempDir()
	tablePath = filepath.Join(dir, "cards.csv")
	if err := os.WriteFile(tablePath, []byte(fixtureTable), 0o600); err != nil {
		t.Fatalf("writing table fixture: %v", err)
	}
	queryPath = filepath.Join(dir, "query.yaml")
	if err := os.WriteFile(queryPath, []byte(fixtureQuery), 0o600); err != nil {
		t.Fatalf("writing query fixture: %v", err)
	}
	return queryPath, tablePath
}

// runCLI runs the CLI binary and returns stdout, stderr, and exit code
func runCLI(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "tablefilter")
	buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
	if err := buildCmd.Run(); err != nil {
		buildCmd = exec.Command("go", "build", "-o", binaryPath, "./cmd/tablefilter")
		buildCmd.Dir = filepath.Join("..", "..")
		if err := buildCmd.Run(); err != nil {
			t.Fatalf("failed to build CLI: %v", err)
		}
	}

	cmd := exec.Command(binaryPath, args...)
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("failed to run CLI: %v", err)
		}
	}

	return stdout, stderr, exitCode
}

func TestCLI_Help(t *testing.T) {
	stdout, _, exitCode := runCLI(t, "--help")

	if exitCode != 0 {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}

	if !strings.Contains(stdout, "tablefilter") {
		t.Error("expected help to contain 'tablefilter'")
	}

	if !strings.Contains(stdout, "validate") {
		t.Error("expected help to contain 'validate' command")
	}

	if !strings.Contains(stdout, "run") {
		t.Error("expected help to contain 'run' command")
	}
}

func TestCLI_ValidateValidQuery(t *testing.T) {
	queryPath, _ := writeFixtures(t)
	_, stderr, exitCode := runCLI(t, "validate", queryPath)

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code %d, got %d\nstderr: %s", ExitSuccess, exitCode, stderr)
	}

	if !strings.Contains(stderr, "valid") {
		t.Errorf("expected output to contain 'valid', got: %s", stderr)
	}

	if !strings.Contains(stderr, "yaml") {
		t.Errorf("expected output to mention 'yaml' format, got: %s", stderr)
	}
}

func TestCLI_ValidateInvalidSyntax(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(path, []byte(`{"schemaVersion": "1.0.0",`), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	_, stderr, exitCode := runCLI(t, "validate", path)

	if exitCode != ExitParseError {
		t.Errorf("expected exit code %d (parse error), got %d", ExitParseError, exitCode)
	}

	if !strings.Contains(stderr, "Parse errors") {
		t.Errorf("expected stderr to contain 'Parse errors', got: %s", stderr)
	}
}

func TestCLI_ValidateSchemaViolation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "incomplete.yaml")
	content := "schemaVersion: \"1.0.0\"\nquery:\n  name: partial\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	_, stderr, exitCode := runCLI(t, "validate", path)

	if exitCode != ExitValidationError {
		t.Errorf("expected exit code %d (validation error), got %d", ExitValidationError, exitCode)
	}

	if !strings.Contains(stderr, "Validation errors") {
		t.Errorf("expected stderr to contain 'Validation errors', got: %s", stderr)
	}
}

func TestCLI_ValidateNonExistent(t *testing.T) {
	_, stderr, exitCode := runCLI(t, "validate", "nonexistent.json")

	if exitCode != ExitParseError {
		t.Errorf("expected exit code %d (parse error), got %d", ExitParseError, exitCode)
	}

	if !strings.Contains(stderr, "Parse errors") {
		t.Errorf("expected stderr to contain parse error for non-existent file, got: %s", stderr)
	}
}

func TestCLI_RunEndToEnd(t *testing.T) {
	queryPath, tablePath := writeFixtures(t)
	stdout, stderr, exitCode := runCLI(t, "run", "--input", tablePath, queryPath)

	if exitCode != ExitSuccess {
		t.Fatalf("expected exit code %d, got %d\nstderr: %s", ExitSuccess, exitCode, stderr)
	}

	// The report owns stdout: header plus one line per distinct card.
	want := "Matching Credit Cards with both 'Visa' and 'Canara':\n" +
		" Sapphiro Credit Card (Visa Signature)\n" +
		" Amazon Pay Credit Card (Visa Signature)\n"
	if stdout != want {
		t.Errorf("unexpected report\nwant:\n%s\ngot:\n%s", want, stdout)
	}

	if !strings.Contains(stderr, "Rows reported: 2") {
		t.Errorf("expected summary to report 2 rows, got: %s", stderr)
	}
}

func TestCLI_RunInputEnvOverride(t *testing.T) {
	queryPath, tablePath := writeFixtures(t)

	binaryPath := filepath.Join(t.TempDir(), "tablefilter")
	buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
	if err := buildCmd.Run(); err != nil {
		t.Fatalf("failed to build CLI: %v", err)
	}

	cmd := exec.Command(binaryPath, "run", queryPath)
	cmd.Env = append(os.Environ(), "INPUT_PATH="+tablePath)
	var stdoutBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	if err := cmd.Run(); err != nil {
		t.Fatalf("run with INPUT_PATH failed: %v", err)
	}

	if !strings.Contains(stdoutBuf.String(), "Sapphiro Credit Card") {
		t.Errorf("expected report from env-resolved table, got: %s", stdoutBuf.String())
	}
}

func TestCLI_RunMissingTable(t *testing.T) {
	queryPath, _ := writeFixtures(t)

	// The query's configured path is relative; without --input or
	// INPUT_PATH it does not resolve from the test working directory.
	_, stderr, exitCode := runCLI(t, "run", queryPath)

	if exitCode != ExitRuntimeError {
		t.Errorf("expected exit code %d (runtime error), got %d", ExitRuntimeError, exitCode)
	}

	if !strings.Contains(stderr, "execution failed") {
		t.Errorf("expected stderr to mention execution failure, got: %s", stderr)
	}
}

func TestCLI_RunDryRun(t *testing.T) {
	queryPath, tablePath := writeFixtures(t)
	stdout, stderr, exitCode := runCLI(t, "run", "--dry-run", "--input", tablePath, queryPath)

	if exitCode != ExitSuccess {
		t.Fatalf("expected exit code %d, got %d\nstderr: %s", ExitSuccess, exitCode, stderr)
	}

	if stdout != "" {
		t.Errorf("expected no report on stdout in dry-run, got: %s", stdout)
	}

	if !strings.Contains(stderr, "dry-run") {
		t.Errorf("expected stderr to mention dry-run, got: %s", stderr)
	}
}

func TestCLI_Version(t *testing.T) {
	stdout, stderr, exitCode := runCLI(t, "version")

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code %d, got %d\nstderr: %s", ExitSuccess, exitCode, stderr)
	}

	if !strings.Contains(stdout, "Version:") {
		t.Errorf("expected output to contain 'Version:', got: %s", stdout)
	}

	if !strings.Contains(stdout, "Commit:") {
		t.Errorf("expected output to contain 'Commit:', got: %s", stdout)
	}
}

func TestCLI_ValidateMissingArg(t *testing.T) {
	_, stderr, exitCode := runCLI(t, "validate")

	if exitCode == ExitSuccess {
		t.Error("expected non-zero exit code for missing argument")
	}

	if !strings.Contains(stderr, "accepts 1 arg") {
		t.Errorf("expected error about missing argument, got: %s", stderr)
	}
}
