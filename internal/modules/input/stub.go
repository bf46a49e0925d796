// Package input provides implementations for source modules.
package input

import (
	"context"
	"log/slog"

	"github.com/tablefilter/runtime/internal/logger"
)

// StubModule is a placeholder source module for testing the pipeline flow.
// It returns sample card records without reading any file.
type StubModule struct {
	ModuleType string
}

// NewStub creates a new stub source module.
func NewStub(moduleType string) *StubModule {
	return &StubModule{
		ModuleType: moduleType,
	}
}

// Fetch returns sample data to demonstrate pipeline flow.
func (m *StubModule) Fetch(_ context.Context) ([]map[string]interface{}, error) {
	logger.Info("Source module loading data",
		slog.String("type", m.ModuleType))

	return []map[string]interface{}{
		{"Credit Card Name": "Sample Card 1", "Bank": "Sample Bank", "Network 1": "Visa"},
		{"Credit Card Name": "Sample Card 2", "Bank": "Sample Bank", "Network 1": "Mastercard"},
	}, nil
}

// Headers returns the column names of the sample data.
func (m *StubModule) Headers() []string {
	return []string{"Credit Card Name", "Bank", "Network 1"}
}

// Close releases resources (no-op for stub).
func (m *StubModule) Close() error {
	return nil
}

// Verify StubModule implements Module
var _ Module = (*StubModule)(nil)
