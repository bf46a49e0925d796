// Package output provides implementations for output modules.
package output

import (
	"log/slog"

	"github.com/tablefilter/runtime/internal/logger"
)

// StubModule is a placeholder output module for testing the pipeline flow.
// It counts records without rendering anything.
type StubModule struct {
	ModuleType string
	// Sent accumulates every batch passed to Send, for test assertions.
	Sent [][]map[string]interface{}
}

// NewStub creates a new stub output module.
func NewStub(moduleType string) *StubModule {
	return &StubModule{
		ModuleType: moduleType,
	}
}

// Send simulates rendering records (stub behavior).
func (m *StubModule) Send(records []map[string]interface{}) (int, error) {
	logger.Info("Output module rendering data",
		slog.String("type", m.ModuleType),
		slog.Int("records", len(records)))

	m.Sent = append(m.Sent, records)
	return len(records), nil
}

// Close releases resources (no-op for stub).
func (m *StubModule) Close() error {
	return nil
}

// Verify StubModule implements Module
var _ Module = (*StubModule)(nil)
