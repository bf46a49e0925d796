package runtime

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tablefilter/runtime/internal/errhandling"
	"github.com/tablefilter/runtime/internal/modules/filter"
	"github.com/tablefilter/runtime/internal/modules/input"
	"github.com/tablefilter/runtime/internal/modules/output"
	"github.com/tablefilter/runtime/pkg/query"
)

// cardTable is a small credit card products table with the columns the
// reference queries use.
const cardTable = `Credit Card Name,Bank,Network 1,Network 2,Network 3,Network 4
Card A,ICICI Bank,Visa Signature,,,
Card B,HDFC Bank,Mastercard,VISA SIGNATURE Premium,,
Card C,ICICI Bank,Rupay,,,
Card A,ICICI Bank,Visa Signature,,,
`

// writeCardTable writes the fixture table to a temp file and returns its path.
func writeCardTable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cards.csv")
	if err := os.WriteFile(path, []byte(cardTable), 0o600); err != nil {
		t.Fatalf("writing fixture table: %v", err)
	}
	return path
}

// newCSVSource builds a csvFile source module for the given path.
func newCSVSource(t *testing.T, path string) input.Module {
	t.Helper()
	module, err := input.NewCSVInputFromConfig(&query.ModuleConfig{
		Type:   "csvFile",
		Config: map[string]interface{}{"path": path},
	})
	if err != nil {
		t.Fatalf("creating source module: %v", err)
	}
	return module
}

// newCardFilters builds the filter chain used by the reference query:
// any network column matching, bank matching, project the card name,
// and dedupe.
func newCardFilters(t *testing.T) []filter.Module {
	t.Helper()

	anyContains, err := filter.NewAnyContainsFromConfig(filter.AnyContainsConfig{
		Columns: []string{"Network 1", "Network 2", "Network 3", "Network 4"},
		Value:   "visa signature",
	})
	if err != nil {
		t.Fatalf("creating anyContains filter: %v", err)
	}

	contains, err := filter.NewContainsFromConfig(filter.ContainsConfig{
		Column: "Bank",
		Value:  "icici",
	})
	if err != nil {
		t.Fatalf("creating contains filter: %v", err)
	}

	project, err := filter.NewProjectFromConfig(filter.ProjectConfig{
		Column: "Credit Card Name",
	})
	if err != nil {
		t.Fatalf("creating project filter: %v", err)
	}

	distinct, err := filter.NewDistinctFromConfig(filter.DistinctConfig{})
	if err != nil {
		t.Fatalf("creating distinct filter: %v", err)
	}

	return []filter.Module{anyContains, contains, project, distinct}
}

func newTestQuery() *query.Query {
	return &query.Query{
		ID:      "visa-signature-cards",
		Name:    "Visa Signature cards by bank",
		Version: "1.0.0",
	}
}

// failingFilter always returns an error from Process.
type failingFilter struct{}

func (f *failingFilter) Process(_ context.Context, _ []map[string]interface{}) ([]map[string]interface{}, error) {
	return nil, errors.New("boom")
}

// failingOutput always returns an error from Send.
type failingOutput struct{}

func (o *failingOutput) Send(_ []map[string]interface{}) (int, error) {
	return 0, errors.New("broken pipe")
}

func (o *failingOutput) Close() error { return nil }

func TestExecuteEndToEnd(t *testing.T) {
	path := writeCardTable(t)
	source := newCSVSource(t, path)
	out := output.NewStub("console")

	executor := NewExecutorWithModules(source, newCardFilters(t), out, false)
	result, err := executor.Execute(newTestQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != StatusSuccess {
		t.Errorf("expected status %q, got %q", StatusSuccess, result.Status)
	}
	if result.QueryID != "visa-signature-cards" {
		t.Errorf("expected query ID to be set, got %q", result.QueryID)
	}
	if result.RecordsLoaded != 4 {
		t.Errorf("expected 4 records loaded, got %d", result.RecordsLoaded)
	}
	if result.RecordsReported != 1 {
		t.Errorf("expected 1 record reported, got %d", result.RecordsReported)
	}
	if result.Error != nil {
		t.Errorf("expected nil error, got %+v", result.Error)
	}
	if result.CompletedAt.Before(result.StartedAt) {
		t.Error("expected CompletedAt to be after StartedAt")
	}

	// Card B matches a network column but not the bank; Card C matches the
	// bank but no network column. Only Card A survives, once.
	if len(out.Sent) != 1 {
		t.Fatalf("expected 1 Send call, got %d", len(out.Sent))
	}
	batch := out.Sent[0]
	if len(batch) != 1 {
		t.Fatalf("expected 1 record in batch, got %d", len(batch))
	}
	if got := batch[0]["value"]; got != "Card A" {
		t.Errorf("expected projected value \"Card A\", got %v", got)
	}
}

func TestExecuteReusesExecutor(t *testing.T) {
	path := writeCardTable(t)
	source := newCSVSource(t, path)
	out := output.NewStub("console")

	executor := NewExecutorWithModules(source, newCardFilters(t), out, false)

	for run := 1; run <= 2; run++ {
		result, err := executor.Execute(newTestQuery())
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", run, err)
		}
		if result.Status != StatusSuccess {
			t.Errorf("run %d: expected status %q, got %q", run, StatusSuccess, result.Status)
		}
		if result.RecordsReported != 1 {
			t.Errorf("run %d: expected 1 record reported, got %d", run, result.RecordsReported)
		}
	}

	if len(out.Sent) != 2 {
		t.Errorf("expected 2 Send calls across runs, got %d", len(out.Sent))
	}
}

func TestExecuteMissingColumnFailsBeforeOutput(t *testing.T) {
	path := writeCardTable(t)
	source := newCSVSource(t, path)
	out := output.NewStub("console")

	badFilter, err := filter.NewAnyContainsFromConfig(filter.AnyContainsConfig{
		Columns: []string{"Network 1", "Network 5"},
		Value:   "visa signature",
	})
	if err != nil {
		t.Fatalf("creating filter: %v", err)
	}

	executor := NewExecutorWithModules(source, []filter.Module{badFilter}, out, false)
	result, err := executor.Execute(newTestQuery())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errhandling.IsSchemaError(err) {
		t.Errorf("expected schema error, got %v", err)
	}

	if result.Status != StatusError {
		t.Errorf("expected status %q, got %q", StatusError, result.Status)
	}
	if result.Error == nil {
		t.Fatal("expected execution error, got nil")
	}
	if result.Error.Code != ErrCodeSchemaInvalid {
		t.Errorf("expected code %q, got %q", ErrCodeSchemaInvalid, result.Error.Code)
	}
	if result.Error.ErrorCategory != string(errhandling.CategorySchema) {
		t.Errorf("expected category %q, got %q", errhandling.CategorySchema, result.Error.ErrorCategory)
	}
	if idx, ok := result.Error.Details["filterIndex"]; !ok || idx != 0 {
		t.Errorf("expected filterIndex detail 0, got %v", result.Error.Details)
	}

	// The bad column must be caught before any line reaches the report.
	if len(out.Sent) != 0 {
		t.Errorf("expected no Send calls, got %d", len(out.Sent))
	}
}

func TestExecuteSourceNotFound(t *testing.T) {
	source := newCSVSource(t, filepath.Join(t.TempDir(), "missing.csv"))
	out := output.NewStub("console")

	executor := NewExecutorWithModules(source, nil, out, false)
	result, err := executor.Execute(newTestQuery())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if result.Error == nil {
		t.Fatal("expected execution error, got nil")
	}
	if result.Error.Code != ErrCodeSourceFailed {
		t.Errorf("expected code %q, got %q", ErrCodeSourceFailed, result.Error.Code)
	}
	if result.Error.ErrorCategory != string(errhandling.CategoryNotFound) {
		t.Errorf("expected category %q, got %q", errhandling.CategoryNotFound, result.Error.ErrorCategory)
	}
	if len(out.Sent) != 0 {
		t.Errorf("expected no Send calls, got %d", len(out.Sent))
	}
}

func TestExecuteFilterFailure(t *testing.T) {
	path := writeCardTable(t)
	source := newCSVSource(t, path)
	out := output.NewStub("console")

	executor := NewExecutorWithModules(source, []filter.Module{&failingFilter{}}, out, false)
	result, err := executor.Execute(newTestQuery())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if result.Error == nil {
		t.Fatal("expected execution error, got nil")
	}
	if result.Error.Code != ErrCodeFilterFailed {
		t.Errorf("expected code %q, got %q", ErrCodeFilterFailed, result.Error.Code)
	}
	if idx, ok := result.Error.Details["filterIndex"]; !ok || idx != 0 {
		t.Errorf("expected filterIndex detail 0, got %v", result.Error.Details)
	}
	if len(out.Sent) != 0 {
		t.Errorf("expected no Send calls, got %d", len(out.Sent))
	}
}

func TestExecuteOutputFailure(t *testing.T) {
	path := writeCardTable(t)
	source := newCSVSource(t, path)

	executor := NewExecutorWithModules(source, newCardFilters(t), &failingOutput{}, false)
	result, err := executor.Execute(newTestQuery())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if result.Error == nil {
		t.Fatal("expected execution error, got nil")
	}
	if result.Error.Code != ErrCodeOutputFailed {
		t.Errorf("expected code %q, got %q", ErrCodeOutputFailed, result.Error.Code)
	}
	if result.Status != StatusError {
		t.Errorf("expected status %q, got %q", StatusError, result.Status)
	}
}

func TestExecuteDryRunSkipsOutput(t *testing.T) {
	path := writeCardTable(t)
	source := newCSVSource(t, path)
	out := output.NewStub("console")

	executor := NewExecutorWithModules(source, newCardFilters(t), out, true)
	result, err := executor.Execute(newTestQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != StatusSuccess {
		t.Errorf("expected status %q, got %q", StatusSuccess, result.Status)
	}
	if result.RecordsReported != 1 {
		t.Errorf("expected 1 record would be reported, got %d", result.RecordsReported)
	}
	if len(out.Sent) != 0 {
		t.Errorf("expected no Send calls in dry-run, got %d", len(out.Sent))
	}
}

func TestExecuteValidation(t *testing.T) {
	path := writeCardTable(t)

	t.Run("nil query", func(t *testing.T) {
		executor := NewExecutorWithModules(newCSVSource(t, path), nil, output.NewStub("console"), false)
		result, err := executor.Execute(nil)
		if !errors.Is(err, ErrNilQuery) {
			t.Fatalf("expected ErrNilQuery, got %v", err)
		}
		if result.Error == nil || result.Error.Code != ErrCodeInvalidQuery {
			t.Errorf("expected INVALID_QUERY error, got %+v", result.Error)
		}
	})

	t.Run("nil source module", func(t *testing.T) {
		executor := NewExecutorWithModules(nil, nil, output.NewStub("console"), false)
		result, err := executor.Execute(newTestQuery())
		if !errors.Is(err, ErrNilSourceModule) {
			t.Fatalf("expected ErrNilSourceModule, got %v", err)
		}
		if result.Error == nil || result.Error.Code != ErrCodeInvalidQuery {
			t.Errorf("expected INVALID_QUERY error, got %+v", result.Error)
		}
	})

	t.Run("nil output module", func(t *testing.T) {
		executor := NewExecutorWithModules(newCSVSource(t, path), nil, nil, false)
		result, err := executor.Execute(newTestQuery())
		if !errors.Is(err, ErrNilOutputModule) {
			t.Fatalf("expected ErrNilOutputModule, got %v", err)
		}
		if result.Error == nil || result.Error.Code != ErrCodeInvalidQuery {
			t.Errorf("expected INVALID_QUERY error, got %+v", result.Error)
		}
	})

	t.Run("nil output module allowed in dry-run", func(t *testing.T) {
		executor := NewExecutorWithModules(newCSVSource(t, path), nil, nil, true)
		result, err := executor.Execute(newTestQuery())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Status != StatusSuccess {
			t.Errorf("expected status %q, got %q", StatusSuccess, result.Status)
		}
	})
}

func TestExecuteCanceledContext(t *testing.T) {
	path := writeCardTable(t)
	source := newCSVSource(t, path)
	out := output.NewStub("console")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	executor := NewExecutorWithModules(source, nil, out, false)
	result, err := executor.ExecuteWithContext(ctx, newTestQuery())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if result.Error == nil {
		t.Fatal("expected execution error, got nil")
	}
	if result.Error.ErrorCategory != string(errhandling.CategoryCanceled) {
		t.Errorf("expected category %q, got %q", errhandling.CategoryCanceled, result.Error.ErrorCategory)
	}
	if len(out.Sent) != 0 {
		t.Errorf("expected no Send calls, got %d", len(out.Sent))
	}
}
