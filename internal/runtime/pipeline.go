// Package runtime provides the query execution engine.
// It orchestrates the execution of Source, Filter, and Output modules.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tablefilter/runtime/internal/errhandling"
	"github.com/tablefilter/runtime/internal/logger"
	"github.com/tablefilter/runtime/internal/modules/filter"
	"github.com/tablefilter/runtime/internal/modules/input"
	"github.com/tablefilter/runtime/internal/modules/output"
	"github.com/tablefilter/runtime/pkg/query"
)

// Error codes for query execution errors
const (
	ErrCodeSourceFailed  = "SOURCE_FAILED"
	ErrCodeSchemaInvalid = "SCHEMA_INVALID"
	ErrCodeFilterFailed  = "FILTER_FAILED"
	ErrCodeOutputFailed  = "OUTPUT_FAILED"
	ErrCodeInvalidQuery  = "INVALID_QUERY"
)

// Execution status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Common errors
var (
	// ErrNilQuery is returned when the query configuration is nil
	ErrNilQuery = errors.New("query configuration is nil")

	// ErrNilSourceModule is returned when the source module is nil
	ErrNilSourceModule = errors.New("source module is nil")

	// ErrNilOutputModule is returned when the output module is nil
	ErrNilOutputModule = errors.New("output module is nil")
)

// filterOutcome holds the result of the filter chain execution
type filterOutcome struct {
	records []map[string]interface{}
	err     error
	errIdx  int
}

// stageTimings holds timing measurements for each execution stage
type stageTimings struct {
	sourceDuration time.Duration
	filterDuration time.Duration
	outputDuration time.Duration
}

// Executor is responsible for executing query configurations.
// It orchestrates the execution flow: Source → Filters → Output.
//
// The Executor only interacts with modules through their public interfaces,
// enforcing module boundaries at compile time. The fields are declared as
// interface types, so the runtime cannot access concrete module types or
// their internals.
type Executor struct {
	sourceModule  input.Module
	filterModules []filter.Module
	outputModule  output.Module
	dryRun        bool
}

// NewExecutor creates a new query executor with only the dry-run flag.
// Modules must be set separately.
func NewExecutor(dryRun bool) *Executor {
	return &Executor{
		dryRun: dryRun,
	}
}

// NewExecutorWithModules creates a new query executor with all modules configured.
// This is the primary constructor for dependency injection.
//
// Parameters:
//   - sourceModule: The source module that loads the table
//   - filterModules: Optional slice of filter modules, applied in order (can be nil)
//   - outputModule: The output module that writes the report
//   - dryRun: If true, skips output module execution (validation only)
func NewExecutorWithModules(
	sourceModule input.Module,
	filterModules []filter.Module,
	outputModule output.Module,
	dryRun bool,
) *Executor {
	return &Executor{
		sourceModule:  sourceModule,
		filterModules: filterModules,
		outputModule:  outputModule,
		dryRun:        dryRun,
	}
}

// Execute runs a query configuration with a background context.
//
// For cancellation support, use ExecuteWithContext instead.
func (e *Executor) Execute(q *query.Query) (*query.ExecutionResult, error) {
	return e.ExecuteWithContext(context.Background(), q)
}

// ExecuteWithContext runs a query configuration with the given context.
// The context can be used to cancel long-running operations.
//
// Execution flow:
//  1. Validate query configuration
//  2. Execute the Source module to load the table
//  3. Validate filter column references against the table header
//  4. Execute Filter modules in sequence (if any)
//  5. Execute the Output module to write the report (unless dry-run mode)
//  6. Return ExecutionResult with status and metrics
//
// Column validation happens after loading and before any filter or output
// runs, so a query that names a column the table does not have fails
// without writing a partial report.
//
// Resource management: the source module is closed immediately after the
// load stage completes, the output module at end of execution (via defer).
// Filter modules are stateless and need no cleanup. The executor keeps its
// module references, so the same instance can execute more than once.
func (e *Executor) ExecuteWithContext(ctx context.Context, q *query.Query) (*query.ExecutionResult, error) {
	startedAt := time.Now()
	result := e.newErrorResult(startedAt)
	var timings stageTimings

	if err := e.validateExecution(q, result); err != nil {
		if q != nil {
			execCtx := logger.ExecutionContext{
				QueryID:     q.ID,
				QueryName:   q.Name,
				DryRun:      e.dryRun,
				FilterIndex: -1,
			}
			logger.LogExecutionStart(execCtx)
			logger.LogExecutionEnd(execCtx, StatusError, 0, time.Since(startedAt))
		}
		return result, err
	}
	result.QueryID = q.ID

	execCtx := logger.ExecutionContext{
		QueryID:     q.ID,
		QueryName:   q.Name,
		DryRun:      e.dryRun,
		FilterIndex: -1,
	}
	logger.LogExecutionStart(execCtx)

	if e.outputModule != nil {
		defer e.closeModule(q.ID, "output", e.outputModule)
	}

	records, sourceDuration, err := e.executeSource(ctx, q, result)
	timings.sourceDuration = sourceDuration

	var headers []string
	if provider, ok := e.sourceModule.(input.HeadersProvider); ok {
		headers = provider.Headers()
	}

	// The source handle is not needed past the load stage. The module
	// itself stays on the executor so the same instance can run again.
	e.closeModule(q.ID, "source", e.sourceModule)

	if err != nil {
		logger.LogExecutionEnd(execCtx, StatusError, 0, time.Since(startedAt))
		return result, err
	}
	result.RecordsLoaded = len(records)

	if err := e.validateFilterColumns(q, headers, result); err != nil {
		logger.LogExecutionEnd(execCtx, StatusError, 0, time.Since(startedAt))
		return result, err
	}

	filteredRecords, filterDuration, err := e.executeFiltersWithResult(ctx, q, records, result)
	timings.filterDuration = filterDuration
	if err != nil {
		logger.LogExecutionEnd(execCtx, StatusError, 0, time.Since(startedAt))
		return result, err
	}

	outputDuration, err := e.executeOutputWithResult(q, filteredRecords, result)
	timings.outputDuration = outputDuration
	if err != nil {
		logger.LogExecutionEnd(execCtx, StatusError, result.RecordsReported, time.Since(startedAt))
		return result, err
	}

	e.finalizeSuccessWithMetrics(result, startedAt, q, timings)
	return result, nil
}

// newErrorResult creates a new ExecutionResult initialized with error status.
func (e *Executor) newErrorResult(startedAt time.Time) *query.ExecutionResult {
	return &query.ExecutionResult{
		StartedAt: startedAt,
		Status:    StatusError,
	}
}

// buildExecutionError creates an ExecutionError with a classified category.
func buildExecutionError(code, module string, err error) *query.ExecutionError {
	return &query.ExecutionError{
		Code:          code,
		Message:       err.Error(),
		Module:        module,
		ErrorCategory: string(errhandling.GetErrorCategory(err)),
	}
}

// validateExecution validates the query and modules before execution.
func (e *Executor) validateExecution(q *query.Query, result *query.ExecutionResult) error {
	if q == nil {
		logger.Error("query execution failed: nil query configuration")
		result.CompletedAt = time.Now()
		result.Error = buildExecutionError(ErrCodeInvalidQuery, "", ErrNilQuery)
		return ErrNilQuery
	}

	if e.sourceModule == nil {
		logger.Error("query execution failed: source module is nil",
			slog.String("query_id", q.ID))
		result.CompletedAt = time.Now()
		result.Error = buildExecutionError(ErrCodeInvalidQuery, "source", ErrNilSourceModule)
		return ErrNilSourceModule
	}

	if e.outputModule == nil && !e.dryRun {
		logger.Error("query execution failed: output module is nil",
			slog.String("query_id", q.ID))
		result.CompletedAt = time.Now()
		result.Error = buildExecutionError(ErrCodeInvalidQuery, "output", ErrNilOutputModule)
		return ErrNilOutputModule
	}

	return nil
}

// moduleCloser interface for modules that can be closed.
type moduleCloser interface {
	Close() error
}

// closeModule closes a module and logs any error.
func (e *Executor) closeModule(queryID, moduleName string, m moduleCloser) {
	if err := m.Close(); err != nil {
		logger.Warn("failed to close module",
			slog.String("query_id", queryID),
			slog.String("module", moduleName),
			slog.String("error", err.Error()),
		)
	}
}

// executeSource executes the source module and returns loaded records and duration.
func (e *Executor) executeSource(ctx context.Context, q *query.Query, result *query.ExecutionResult) ([]map[string]interface{}, time.Duration, error) {
	stageCtx := logger.ExecutionContext{
		QueryID:     q.ID,
		QueryName:   q.Name,
		Stage:       "source",
		DryRun:      e.dryRun,
		FilterIndex: -1,
	}
	logger.LogStageStart(stageCtx)

	sourceStartTime := time.Now()
	records, err := e.sourceModule.Fetch(ctx)
	sourceDuration := time.Since(sourceStartTime)

	if err != nil {
		result.CompletedAt = time.Now()
		result.Error = buildExecutionError(ErrCodeSourceFailed, "source", err)
		logger.LogStageEnd(stageCtx, 0, sourceDuration, &logger.ExecutionError{
			Code:    ErrCodeSourceFailed,
			Message: err.Error(),
		})
		return nil, sourceDuration, fmt.Errorf("executing source module: %w", err)
	}

	logger.LogStageEnd(stageCtx, len(records), sourceDuration, nil)
	return records, sourceDuration, nil
}

// validateFilterColumns checks every filter that pins columns against the
// table header. Runs before the filter chain so a bad column name fails
// the whole query without a partial report.
func (e *Executor) validateFilterColumns(q *query.Query, headers []string, result *query.ExecutionResult) error {
	if headers == nil {
		return nil
	}

	for i, filterModule := range e.filterModules {
		validator, ok := filterModule.(filter.ColumnValidator)
		if !ok {
			continue
		}
		if err := validator.ValidateColumns(headers); err != nil {
			result.CompletedAt = time.Now()
			result.Error = buildExecutionError(ErrCodeSchemaInvalid, "filter", err)
			result.Error.Details = map[string]interface{}{"filterIndex": i}
			logger.Error("filter references unknown columns",
				slog.String("query_id", q.ID),
				slog.Int("filter_index", i),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("validating filter module %d: %w", i, err)
		}
	}
	return nil
}

// executeFilters runs all filter modules in sequence on the given records.
func (e *Executor) executeFilters(ctx context.Context, queryID string, records []map[string]interface{}) filterOutcome {
	currentRecords := records
	for i, filterModule := range e.filterModules {
		if filterModule == nil {
			logger.Warn("nil filter module encountered; skipping",
				slog.String("query_id", queryID),
				slog.String("stage", "filter"),
				slog.Int("filter_index", i),
				slog.Int("input_records", len(currentRecords)),
			)
			continue
		}

		logger.Debug("executing filter module",
			slog.String("query_id", queryID),
			slog.String("stage", "filter"),
			slog.Int("filter_index", i),
			slog.Int("input_records", len(currentRecords)),
		)

		filterStartTime := time.Now()
		var err error
		currentRecords, err = filterModule.Process(ctx, currentRecords)
		filterDuration := time.Since(filterStartTime)

		if err != nil {
			logger.Error("filter module execution failed",
				slog.String("query_id", queryID),
				slog.String("module", "filter"),
				slog.Int("filter_index", i),
				slog.Duration("duration", filterDuration),
				slog.String("error", err.Error()),
			)
			return filterOutcome{records: nil, err: err, errIdx: i}
		}

		logger.Debug("filter module completed",
			slog.String("query_id", queryID),
			slog.String("stage", "filter"),
			slog.Int("filter_index", i),
			slog.Int("output_records", len(currentRecords)),
			slog.Duration("duration", filterDuration),
		)
	}
	return filterOutcome{records: currentRecords, err: nil, errIdx: -1}
}

// executeFiltersWithResult executes filter modules and updates result on error.
func (e *Executor) executeFiltersWithResult(ctx context.Context, q *query.Query, records []map[string]interface{}, result *query.ExecutionResult) ([]map[string]interface{}, time.Duration, error) {
	stageCtx := logger.ExecutionContext{
		QueryID:     q.ID,
		QueryName:   q.Name,
		Stage:       "filter",
		DryRun:      e.dryRun,
		FilterIndex: -1,
	}
	logger.LogStageStart(stageCtx)

	filterStartTime := time.Now()
	outcome := e.executeFilters(ctx, q.ID, records)
	filterDuration := time.Since(filterStartTime)

	if outcome.err != nil {
		result.CompletedAt = time.Now()
		errMsg := fmt.Sprintf("filter module %d failed: %v", outcome.errIdx, outcome.err)
		result.Error = buildExecutionError(ErrCodeFilterFailed, "filter", outcome.err)
		result.Error.Message = errMsg
		result.Error.Details = map[string]interface{}{"filterIndex": outcome.errIdx}
		logger.LogStageEnd(stageCtx, len(records), filterDuration, &logger.ExecutionError{
			Code:    ErrCodeFilterFailed,
			Message: errMsg,
		})
		return nil, filterDuration, fmt.Errorf("executing filter module %d: %w", outcome.errIdx, outcome.err)
	}

	logger.LogStageEnd(stageCtx, len(outcome.records), filterDuration, nil)
	return outcome.records, filterDuration, nil
}

// executeOutputWithResult executes the output module and updates result.
// In dry-run mode the output module is skipped and the would-be line count
// is reported instead.
func (e *Executor) executeOutputWithResult(q *query.Query, records []map[string]interface{}, result *query.ExecutionResult) (time.Duration, error) {
	stageCtx := logger.ExecutionContext{
		QueryID:     q.ID,
		QueryName:   q.Name,
		Stage:       "output",
		DryRun:      e.dryRun,
		FilterIndex: -1,
	}
	logger.LogStageStart(stageCtx)

	if e.dryRun {
		logger.Debug("dry-run mode: skipping output module",
			slog.String("query_id", q.ID),
			slog.Int("records_would_report", len(records)),
		)
		result.RecordsReported = len(records)
		logger.LogStageEnd(stageCtx, len(records), 0, nil)
		return 0, nil
	}

	outputStartTime := time.Now()
	recordsSent, err := e.outputModule.Send(records)
	outputDuration := time.Since(outputStartTime)

	if err != nil {
		result.CompletedAt = time.Now()
		result.RecordsReported = recordsSent
		result.Error = buildExecutionError(ErrCodeOutputFailed, "output", err)
		logger.LogStageEnd(stageCtx, len(records), outputDuration, &logger.ExecutionError{
			Code:    ErrCodeOutputFailed,
			Message: err.Error(),
		})
		return outputDuration, fmt.Errorf("executing output module: %w", err)
	}

	logger.LogStageEnd(stageCtx, recordsSent, outputDuration, nil)
	result.RecordsReported = recordsSent
	return outputDuration, nil
}

// finalizeSuccessWithMetrics marks the execution as successful and logs
// completion with detailed metrics.
func (e *Executor) finalizeSuccessWithMetrics(result *query.ExecutionResult, startedAt time.Time, q *query.Query, timings stageTimings) {
	result.Status = StatusSuccess
	result.CompletedAt = time.Now()
	result.Error = nil

	totalDuration := time.Since(startedAt)

	var recordsPerSecond float64
	if result.RecordsLoaded > 0 && totalDuration > 0 {
		recordsPerSecond = float64(result.RecordsLoaded) / totalDuration.Seconds()
	}

	execCtx := logger.ExecutionContext{
		QueryID:     q.ID,
		QueryName:   q.Name,
		DryRun:      e.dryRun,
		FilterIndex: -1,
	}

	metrics := logger.ExecutionMetrics{
		TotalDuration:    totalDuration,
		SourceDuration:   timings.sourceDuration,
		FilterDuration:   timings.filterDuration,
		OutputDuration:   timings.outputDuration,
		RecordsLoaded:    result.RecordsLoaded,
		RecordsReported:  result.RecordsReported,
		RecordsPerSecond: recordsPerSecond,
	}

	logger.LogExecutionEnd(execCtx, StatusSuccess, result.RecordsReported, totalDuration)
	logger.LogMetrics(execCtx, metrics)
}
