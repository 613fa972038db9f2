package common

import (
	"fmt"
)

// ConfigurationError reports a mismatch between pieces of the rendering setup that must agree,
// such as a pipeline's attribute table and the inputs its shader declares, or an instance record
// schema and the variant drawing it. It is raised when pipelines and batches are built and is
// never recoverable by retrying.
type ConfigurationError struct {
	// Op names the operation that detected the mismatch (e.g. "pipeline.Validate").
	Op string
	// Reason describes the mismatch.
	Reason string
}

// NewConfigurationError builds a ConfigurationError with a formatted reason.
//
// Parameters:
//   - op: the operation that detected the problem
//   - format: fmt format string for the reason
//   - args: format arguments
//
// Returns:
//   - *ConfigurationError: the error
func NewConfigurationError(op, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: configuration error: %s", e.Op, e.Reason)
}

// CapacityError reports an instance index at or beyond the reserved capacity of a buffer.
// The write that produced it left the buffer untouched; reserving more capacity and retrying
// is the expected recovery.
type CapacityError struct {
	// Index is the rejected instance index.
	Index uint32
	// Capacity is the number of records reserved at the time of the write.
	Capacity uint32
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("instance index %d out of range for capacity %d", e.Index, e.Capacity)
}

// UploadError wraps a failure reported by the device while creating or writing a GPU buffer.
// The frame that produced it should be abandoned; it is not retried automatically.
type UploadError struct {
	// Op names the upload that failed (e.g. "camera.Upload").
	Op string
	// Err is the underlying device error.
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: upload failed: %v", e.Op, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
