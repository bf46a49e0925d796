// Package factory provides module creation functions for the query runtime.
// It centralizes the logic for instantiating source, filter, and output modules
// from their configuration using the module registry.
//
// # Module Creation
//
// The factory uses the registry package to look up module constructors by type.
// Built-in modules (csvFile, anyContains, contains, project, distinct,
// condition, script, mapping, console) are registered automatically at startup.
// Unknown types resolve to stub implementations.
//
// # Adding New Module Types
//
// To add a new module type, see the documentation in internal/registry.
// You do NOT need to modify this factory; just register your constructor.
package factory

import (
	"log/slog"

	"github.com/tablefilter/runtime/internal/logger"
	"github.com/tablefilter/runtime/internal/modules/filter"
	"github.com/tablefilter/runtime/internal/modules/input"
	"github.com/tablefilter/runtime/internal/modules/output"
	"github.com/tablefilter/runtime/internal/registry"
	"github.com/tablefilter/runtime/pkg/query"
)

// CreateInputModule creates a source module instance from configuration.
// Uses the registry to look up the constructor by type.
// Returns a stub module for unregistered types.
func CreateInputModule(cfg *query.ModuleConfig) (input.Module, error) {
	if cfg == nil {
		return nil, nil
	}

	constructor := registry.GetInputConstructor(cfg.Type)
	if constructor != nil {
		return constructor(cfg)
	}

	// Fallback to stub for unknown types
	logger.Warn("unknown source module type, using stub",
		slog.String("type", cfg.Type))
	return input.NewStub(cfg.Type), nil
}

// CreateFilterModules creates filter module instances from configuration.
// Filters are returned in configuration order. An invalid configuration
// for any filter aborts creation of the whole chain.
func CreateFilterModules(cfgs []query.ModuleConfig) ([]filter.Module, error) {
	if len(cfgs) == 0 {
		return nil, nil
	}

	modules := make([]filter.Module, 0, len(cfgs))
	for i, cfg := range cfgs {
		module, err := createSingleFilterModule(cfg, i)
		if err != nil {
			return nil, err
		}
		modules = append(modules, module)
	}
	return modules, nil
}

// createSingleFilterModule creates a single filter module based on its type.
func createSingleFilterModule(cfg query.ModuleConfig, index int) (filter.Module, error) {
	constructor := registry.GetFilterConstructor(cfg.Type)
	if constructor != nil {
		return constructor(cfg, index)
	}

	// Fallback to stub for unknown types
	logger.Warn("unknown filter module type, using stub",
		slog.String("type", cfg.Type),
		slog.Int("index", index))
	return filter.NewStub(cfg.Type, index), nil
}

// CreateOutputModule creates an output module instance from configuration.
// Uses the registry to look up the constructor by type.
// Returns a stub module for unregistered types.
func CreateOutputModule(cfg *query.ModuleConfig) (output.Module, error) {
	if cfg == nil {
		return nil, nil
	}

	constructor := registry.GetOutputConstructor(cfg.Type)
	if constructor != nil {
		return constructor(cfg)
	}

	// Fallback to stub for unknown types
	logger.Warn("unknown output module type, using stub",
		slog.String("type", cfg.Type))
	return output.NewStub(cfg.Type), nil
}
