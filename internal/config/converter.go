// Package config provides functionality for parsing and validating
// query configuration files (JSON/YAML).
package config

import (
	"fmt"

	"github.com/tablefilter/runtime/pkg/query"
)

// ConvertToQuery converts parsed configuration data to a Query struct.
// The input data should have been validated against the schema before calling
// this function.
//
// The configuration is expected to have this structure:
//
//	{
//	  "schemaVersion": "1.0.0",
//	  "query": {
//	    "name": "...",
//	    "version": "...",
//	    "source": {...},
//	    "filters": [...],
//	    "output": {...}
//	  }
//	}
func ConvertToQuery(data map[string]interface{}) (*query.Query, error) {
	if data == nil {
		return nil, fmt.Errorf("configuration data is nil")
	}

	queryData, ok := data["query"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'query' section")
	}

	q := &query.Query{}

	var name string
	if name, ok = queryData["name"].(string); !ok {
		return nil, fmt.Errorf("missing required field 'query.name'")
	}
	q.Name = name
	// Use name as ID if not specified
	q.ID = name

	var version string
	if version, ok = queryData["version"].(string); !ok {
		return nil, fmt.Errorf("missing required field 'query.version'")
	}
	q.Version = version

	if description, okDesc := queryData["description"].(string); okDesc {
		q.Description = description
	}

	if id, okID := queryData["id"].(string); okID {
		q.ID = id
	}

	sourceData, ok := queryData["source"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'query.source' section")
	}
	sourceConfig, err := convertModuleConfig(sourceData)
	if err != nil {
		return nil, fmt.Errorf("invalid source config: %w", err)
	}
	q.Source = sourceConfig

	if filtersData, okFilters := queryData["filters"].([]interface{}); okFilters {
		for i, filterData := range filtersData {
			filterMap, isMap := filterData.(map[string]interface{})
			if !isMap {
				return nil, fmt.Errorf("invalid filter at index %d", i)
			}
			filterConfig, convertErr := convertModuleConfig(filterMap)
			if convertErr != nil {
				return nil, fmt.Errorf("invalid filter at index %d: %w", i, convertErr)
			}
			q.Filters = append(q.Filters, *filterConfig)
		}
	}

	outputData, okOutput := queryData["output"].(map[string]interface{})
	if !okOutput {
		return nil, fmt.Errorf("missing or invalid 'query.output' section")
	}
	outputConfig, err := convertModuleConfig(outputData)
	if err != nil {
		return nil, fmt.Errorf("invalid output config: %w", err)
	}
	q.Output = outputConfig

	return q, nil
}

// convertModuleConfig converts a raw module configuration map to ModuleConfig.
func convertModuleConfig(data map[string]interface{}) (*query.ModuleConfig, error) {
	moduleConfig := &query.ModuleConfig{
		Config: make(map[string]interface{}),
	}

	moduleType, ok := data["type"].(string)
	if !ok {
		return nil, fmt.Errorf("missing required field 'type'")
	}
	moduleConfig.Type = moduleType

	// Copy all fields except 'type' to Config
	for key, value := range data {
		if key != "type" {
			moduleConfig.Config[key] = value
		}
	}

	return moduleConfig, nil
}
