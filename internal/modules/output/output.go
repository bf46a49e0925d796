// Package output provides implementations for output modules.
// Output modules render the final records into a report.
package output

// Module represents an output module that renders records.
type Module interface {
	// Send renders records to the destination.
	// Returns the number of records successfully rendered and any error.
	Send(records []map[string]interface{}) (int, error)

	// Close releases any resources held by the module.
	Close() error
}
