package registry

import (
	"fmt"

	"github.com/tablefilter/runtime/internal/modules/filter"
	"github.com/tablefilter/runtime/internal/modules/input"
	"github.com/tablefilter/runtime/internal/modules/output"
	"github.com/tablefilter/runtime/pkg/query"
)

// init registers all built-in module constructors.
func init() {
	registerBuiltinInputs()
	registerBuiltinFilters()
	registerBuiltinOutputs()
}

func registerBuiltinInputs() {
	RegisterInput("csvFile", func(cfg *query.ModuleConfig) (input.Module, error) {
		return input.NewCSVInputFromConfig(cfg)
	})
}

func registerBuiltinFilters() {
	RegisterFilter("anyContains", func(cfg query.ModuleConfig, index int) (filter.Module, error) {
		config, err := filter.ParseAnyContainsConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid anyContains config at index %d: %w", index, err)
		}
		return filter.NewAnyContainsFromConfig(config)
	})

	RegisterFilter("contains", func(cfg query.ModuleConfig, index int) (filter.Module, error) {
		config, err := filter.ParseContainsConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid contains config at index %d: %w", index, err)
		}
		return filter.NewContainsFromConfig(config)
	})

	RegisterFilter("project", func(cfg query.ModuleConfig, index int) (filter.Module, error) {
		config, err := filter.ParseProjectConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid project config at index %d: %w", index, err)
		}
		return filter.NewProjectFromConfig(config)
	})

	RegisterFilter("distinct", func(cfg query.ModuleConfig, index int) (filter.Module, error) {
		config, err := filter.ParseDistinctConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid distinct config at index %d: %w", index, err)
		}
		return filter.NewDistinctFromConfig(config)
	})

	RegisterFilter("condition", func(cfg query.ModuleConfig, index int) (filter.Module, error) {
		config, err := filter.ParseConditionConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid condition config at index %d: %w", index, err)
		}
		if config.Expression == "" {
			return nil, fmt.Errorf("invalid condition config at index %d: expression is required", index)
		}
		return filter.NewConditionFromConfig(config)
	})

	RegisterFilter("script", func(cfg query.ModuleConfig, index int) (filter.Module, error) {
		config, err := filter.ParseScriptConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid script config at index %d: %w", index, err)
		}
		return filter.NewScriptFromConfig(config)
	})

	RegisterFilter("mapping", func(cfg query.ModuleConfig, index int) (filter.Module, error) {
		mappings, err := filter.ParseFieldMappings(cfg.Config["mappings"])
		if err != nil {
			return nil, fmt.Errorf("invalid mapping config at index %d: %w", index, err)
		}
		if len(mappings) == 0 {
			return nil, fmt.Errorf("invalid mapping config at index %d: at least one mapping is required", index)
		}
		onError, _ := cfg.Config["onError"].(string)
		module, err := filter.NewMappingFromConfig(mappings, onError)
		if err != nil {
			return nil, fmt.Errorf("invalid mapping config at index %d: %w", index, err)
		}
		return module, nil
	})
}

func registerBuiltinOutputs() {
	RegisterOutput("console", func(cfg *query.ModuleConfig) (output.Module, error) {
		return output.NewConsoleOutputFromConfig(cfg)
	})
}
