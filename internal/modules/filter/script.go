// Package filter provides implementations for filter modules.
// Script module executes JavaScript transformations using the Goja engine.
package filter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/tablefilter/runtime/internal/logger"
	"github.com/tablefilter/runtime/internal/pathutil"
)

// Error codes for script module
const (
	ErrCodeScriptEmpty          = "SCRIPT_EMPTY"
	ErrCodeScriptTooLong        = "SCRIPT_TOO_LONG"
	ErrCodeCompilationFailed    = "COMPILATION_FAILED"
	ErrCodeMissingTransform     = "MISSING_TRANSFORM"
	ErrCodeNotFunction          = "NOT_FUNCTION"
	ErrCodeExecutionFailed      = "EXECUTION_FAILED"
	ErrCodeInvalidScriptFile    = "INVALID_SCRIPT_FILE"
	ErrCodeScriptFileReadFailed = "SCRIPT_FILE_READ_FAILED"
)

// MaxScriptLength is the maximum allowed script length in bytes (100KB)
const MaxScriptLength = 100 * 1024

// Common errors for script module
var (
	// ErrScriptEmpty is returned when the script is empty or whitespace-only
	ErrScriptEmpty = fmt.Errorf("script cannot be empty")
	// ErrScriptTooLong is returned when the script exceeds MaxScriptLength
	ErrScriptTooLong = fmt.Errorf("script exceeds maximum length")
	// ErrMissingTransformFunc is returned when the script doesn't define a transform function
	ErrMissingTransformFunc = fmt.Errorf("transform function not found in script")
	// ErrTransformNotFunction is returned when transform is defined but is not a function
	ErrTransformNotFunction = fmt.Errorf("transform is not a function")
)

// ScriptConfig represents the configuration for a script filter module.
// Either Script or ScriptFile must be provided (but not both).
type ScriptConfig struct {
	// Script is the inline JavaScript source code containing a transform(record) function
	Script string `json:"script,omitempty"`
	// ScriptFile is the path to a JavaScript file containing the transform(record) function
	ScriptFile string `json:"scriptFile,omitempty"`
	// OnError specifies error handling mode: "fail" (default), "skip", "log"
	OnError string `json:"onError,omitempty"`
}

// ScriptModule implements a filter that executes JavaScript transformations
// using Goja. Each record is passed to a user-defined transform(record)
// function and replaced by its return value.
//
// Goja runtime instances are not goroutine-safe; each ScriptModule has its
// own runtime and Process must not be called concurrently on one instance.
// JavaScript execution is interrupted via runtime.Interrupt() when the
// context is canceled.
type ScriptModule struct {
	scriptSource string
	onError      string
	runtime      *goja.Runtime
	transformFn  goja.Callable
	interruptMu  sync.Mutex
}

// ScriptError carries structured context for script execution failures.
type ScriptError struct {
	Code        string
	Message     string
	RecordIndex int
	StackTrace  string
	Details     map[string]interface{}
}

func (e *ScriptError) Error() string {
	return e.Message
}

// newScriptError creates a ScriptError with optional details.
func newScriptError(code, message string, recordIdx int, stackTrace string, err error) *ScriptError {
	details := make(map[string]interface{})
	if err != nil {
		details["underlying_error"] = err.Error()
	}
	if stackTrace != "" {
		details["stack_trace"] = stackTrace
	}

	return &ScriptError{
		Code:        code,
		Message:     message,
		RecordIndex: recordIdx,
		StackTrace:  stackTrace,
		Details:     details,
	}
}

// NewScriptFromConfig creates a new script filter module from configuration.
// It validates the script, compiles it, and verifies the transform function
// exists. Scripts are length-limited and run sandboxed inside Goja with no
// file system or network access.
func NewScriptFromConfig(config ScriptConfig) (*ScriptModule, error) {
	scriptSource, err := resolveScriptSource(config)
	if err != nil {
		return nil, err
	}

	if validateErr := validateScript(scriptSource); validateErr != nil {
		return nil, validateErr
	}

	onError := normalizeScriptOnError(config.OnError)

	vm := goja.New()

	_, err = vm.RunString(scriptSource)
	if err != nil {
		return nil, newScriptError(ErrCodeCompilationFailed, fmt.Sprintf("script compilation failed: %v", err), -1, "", err)
	}

	transformFn, err := getTransformFunction(vm)
	if err != nil {
		return nil, err
	}

	logger.Debug("script module initialized",
		slog.Int("script_length", len(scriptSource)),
		slog.String("on_error", onError),
		slog.Bool("from_file", config.ScriptFile != ""),
	)

	return &ScriptModule{
		scriptSource: scriptSource,
		onError:      onError,
		runtime:      vm,
		transformFn:  transformFn,
	}, nil
}

// resolveScriptSource returns the script source code, either inline or from file.
func resolveScriptSource(config ScriptConfig) (string, error) {
	if config.Script != "" && config.ScriptFile != "" {
		return "", newScriptError(ErrCodeInvalidScriptFile, "cannot specify both 'script' and 'scriptFile' - use only one", -1, "", nil)
	}

	if config.Script != "" {
		return config.Script, nil
	}

	if config.ScriptFile != "" {
		if err := pathutil.ValidateFilePath(config.ScriptFile); err != nil {
			return "", newScriptError(ErrCodeInvalidScriptFile, fmt.Sprintf("invalid scriptFile path: %v", err), -1, "", err)
		}

		// Check file size before reading to avoid loading oversized scripts
		fileInfo, err := os.Stat(config.ScriptFile)
		if err != nil {
			return "", newScriptError(ErrCodeScriptFileReadFailed, fmt.Sprintf("failed to stat script file %q: %v", config.ScriptFile, err), -1, "", err)
		}
		if fileInfo.Size() > MaxScriptLength {
			return "", newScriptError(ErrCodeScriptTooLong, fmt.Sprintf("script file %q exceeds maximum length: %d bytes exceeds maximum %d bytes", config.ScriptFile, fileInfo.Size(), MaxScriptLength), -1, "", nil)
		}

		file, err := os.Open(config.ScriptFile)
		if err != nil {
			return "", newScriptError(ErrCodeScriptFileReadFailed, fmt.Sprintf("failed to open script file %q: %v", config.ScriptFile, err), -1, "", err)
		}
		defer func() {
			_ = file.Close()
		}()

		// LimitReader caps reading in case the file grew between Stat and Read
		limitedReader := io.LimitReader(file, MaxScriptLength+1)
		content, err := io.ReadAll(limitedReader)
		if err != nil {
			return "", newScriptError(ErrCodeScriptFileReadFailed, fmt.Sprintf("failed to read script file %q: %v", config.ScriptFile, err), -1, "", err)
		}
		if len(content) > MaxScriptLength {
			return "", newScriptError(ErrCodeScriptTooLong, fmt.Sprintf("script file %q exceeds maximum length: file is larger than %d bytes", config.ScriptFile, MaxScriptLength), -1, "", nil)
		}

		return string(content), nil
	}

	return "", newScriptError(ErrCodeScriptEmpty, "either 'script' or 'scriptFile' must be provided", -1, "", nil)
}

// validateScript validates the script is non-empty and within length limits.
func validateScript(script string) error {
	if len(script) == 0 || isWhitespaceOnly(script) {
		return newScriptError(ErrCodeScriptEmpty, "script cannot be empty", -1, "", ErrScriptEmpty)
	}
	if len(script) > MaxScriptLength {
		return newScriptError(ErrCodeScriptTooLong, fmt.Sprintf("script exceeds maximum length: %d bytes exceeds maximum %d bytes", len(script), MaxScriptLength), -1, "", ErrScriptTooLong)
	}
	return nil
}

// normalizeScriptOnError normalizes the onError configuration value.
func normalizeScriptOnError(onError string) string {
	if onError == "" {
		return OnErrorFail
	}
	if onError != OnErrorFail && onError != OnErrorSkip && onError != OnErrorLog {
		logger.Warn("invalid onError value for script module; defaulting to fail",
			slog.String("on_error", onError),
		)
		return OnErrorFail
	}
	return onError
}

// getTransformFunction retrieves and validates the transform function from the runtime.
func getTransformFunction(vm *goja.Runtime) (goja.Callable, error) {
	transformVal := vm.Get("transform")
	if transformVal == nil || goja.IsUndefined(transformVal) {
		return nil, newScriptError(ErrCodeMissingTransform, "transform function not found in script", -1, "", ErrMissingTransformFunc)
	}

	transformFn, ok := goja.AssertFunction(transformVal)
	if !ok {
		return nil, newScriptError(ErrCodeNotFunction, "transform is not a function", -1, "", ErrTransformNotFunction)
	}

	return transformFn, nil
}

// ParseScriptConfig parses a script filter configuration from raw config.
func ParseScriptConfig(cfg map[string]interface{}) (ScriptConfig, error) {
	config := ScriptConfig{}

	script, hasScript := cfg["script"].(string)
	scriptFile, hasScriptFile := cfg["scriptFile"].(string)

	if hasScript && hasScriptFile {
		return config, fmt.Errorf("cannot specify both 'script' and 'scriptFile' - use only one")
	}

	if !hasScript && !hasScriptFile {
		if cfg["script"] != nil {
			return config, fmt.Errorf("field 'script' must be a string")
		}
		if cfg["scriptFile"] != nil {
			return config, fmt.Errorf("field 'scriptFile' must be a string")
		}
		return config, fmt.Errorf("either 'script' or 'scriptFile' is required in script config")
	}

	if hasScript {
		config.Script = script
	}
	if hasScriptFile {
		config.ScriptFile = scriptFile
	}

	if onError, ok := cfg["onError"].(string); ok {
		config.OnError = onError
	}

	return config, nil
}

// Process applies the JavaScript transform function to each input record.
func (m *ScriptModule) Process(ctx context.Context, records []map[string]interface{}) ([]map[string]interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if records == nil {
		return []map[string]interface{}{}, nil
	}

	startTime := time.Now()
	inputCount := len(records)

	logger.Debug("filter processing started",
		slog.String("module_type", "script"),
		slog.Int("input_records", inputCount),
		slog.String("on_error", m.onError),
	)

	result := make([]map[string]interface{}, 0, len(records))
	skippedCount := 0
	errorCount := 0

	for recordIdx, record := range records {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		transformedRecord, err := m.processRecord(ctx, record, recordIdx)
		if err != nil {
			errorCount++
			switch m.onError {
			case OnErrorFail:
				duration := time.Since(startTime)
				logger.Error("filter processing failed",
					slog.String("module_type", "script"),
					slog.Int("record_index", recordIdx),
					slog.Duration("duration", duration),
					slog.String("error", err.Error()),
				)
				return nil, err
			case OnErrorSkip:
				skippedCount++
				logger.Warn("skipping record due to script error",
					slog.String("module_type", "script"),
					slog.Int("record_index", recordIdx),
					slog.String("error", err.Error()),
				)
				continue
			case OnErrorLog:
				logger.Error("script error (continuing)",
					slog.String("module_type", "script"),
					slog.Int("record_index", recordIdx),
					slog.String("error", err.Error()),
				)
				// Keep the original record in log mode
				result = append(result, record)
				continue
			}
		}
		result = append(result, transformedRecord)
	}

	duration := time.Since(startTime)

	logger.Info("filter processing completed",
		slog.String("module_type", "script"),
		slog.Int("input_records", inputCount),
		slog.Int("output_records", len(result)),
		slog.Int("skipped_records", skippedCount),
		slog.Int("error_count", errorCount),
		slog.Duration("duration", duration),
	)

	return result, nil
}

// processRecord transforms a single record using the JavaScript function.
func (m *ScriptModule) processRecord(ctx context.Context, record map[string]interface{}, recordIdx int) (map[string]interface{}, error) {
	interruptDone := make(chan struct{})
	defer close(interruptDone)

	go func() {
		select {
		case <-ctx.Done():
			m.interruptMu.Lock()
			m.runtime.Interrupt(ctx.Err().Error())
			m.interruptMu.Unlock()
		case <-interruptDone:
			m.interruptMu.Lock()
			m.runtime.ClearInterrupt()
			m.interruptMu.Unlock()
		}
	}()

	jsRecord := m.runtime.ToValue(record)

	result, err := m.transformFn(goja.Undefined(), jsRecord)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, m.handleJSError(err, recordIdx)
	}

	m.interruptMu.Lock()
	m.runtime.ClearInterrupt()
	m.interruptMu.Unlock()

	return m.exportToGoMap(result, recordIdx)
}

// handleJSError converts a JavaScript error to a Go error with context.
func (m *ScriptModule) handleJSError(err error, recordIdx int) error {
	if jsErr, ok := err.(*goja.Exception); ok {
		stackTrace := ""
		if jsErr.Value() != nil {
			if obj, okObj := jsErr.Value().(*goja.Object); okObj {
				if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
					stackTrace = stack.String()
				}
			}
		}

		message := fmt.Sprintf("script execution failed at record %d: %v", recordIdx, jsErr.Value())
		return newScriptError(ErrCodeExecutionFailed, message, recordIdx, stackTrace, err)
	}

	message := fmt.Sprintf("script execution failed at record %d: %v", recordIdx, err)
	return newScriptError(ErrCodeExecutionFailed, message, recordIdx, "", err)
}

// exportToGoMap converts a JavaScript value back to a Go map.
// The transform function must return an object, not a primitive or array.
func (m *ScriptModule) exportToGoMap(value goja.Value, recordIdx int) (map[string]interface{}, error) {
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, newScriptError(ErrCodeExecutionFailed, fmt.Sprintf("script at record %d returned null or undefined - transform function must return an object", recordIdx), recordIdx, "", nil)
	}

	exported := value.Export()

	if arr, ok := exported.([]interface{}); ok {
		return nil, newScriptError(ErrCodeExecutionFailed, fmt.Sprintf("script at record %d returned an array (length %d) - transform function must return an object, not an array", recordIdx, len(arr)), recordIdx, "", nil)
	}

	if result, ok := exported.(map[string]interface{}); ok {
		return result, nil
	}

	if obj, ok := exported.(*goja.Object); ok {
		if obj.ClassName() == "Array" {
			return nil, newScriptError(ErrCodeExecutionFailed, fmt.Sprintf("script at record %d returned an array - transform function must return an object, not an array", recordIdx), recordIdx, "", nil)
		}

		var result map[string]interface{}
		if err := m.runtime.ExportTo(value, &result); err != nil {
			return nil, newScriptError(ErrCodeExecutionFailed, fmt.Sprintf("failed to convert script result at record %d: %v", recordIdx, err), recordIdx, "", err)
		}
		return result, nil
	}

	return nil, newScriptError(ErrCodeExecutionFailed, fmt.Sprintf("script at record %d returned invalid type %T - transform function must return an object", recordIdx, exported), recordIdx, "", nil)
}

// Verify interface compliance at compile time
var _ Module = (*ScriptModule)(nil)
