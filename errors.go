package recsort

import (
	"fmt"

	"github.com/lanrat/recsort/record"
)

// FormatError is returned for an input whose length is not a whole number of records
type FormatError struct {
	// Path is the offending file
	Path string
	// Size is its length in bytes
	Size int64
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error: %s is %d bytes, not a multiple of the %d byte record size", e.Path, e.Size, record.Size)
}

// InvariantError reports an internal consistency check that failed. It always
// indicates a bug or corrupted intermediate state and aborts the sort.
type InvariantError struct {
	// What names the violated invariant
	What string
	// Value is the value that broke it
	Value interface{}
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated: %s (value: %v)", e.What, e.Value)
}

// NewDiskError creates a DiskError wrapping the underlying I/O error
func NewDiskError(err error, operation, path string) error {
	if path != "" {
		return fmt.Errorf("disk error during %s on %s: %w", operation, path, err)
	}
	return fmt.Errorf("disk error during %s: %w", operation, err)
}

// ConfigError represents an error in configuration parameters
type ConfigError struct {
	// Field is the name of the configuration field that's invalid
	Field string
	// Value is the invalid value provided
	Value interface{}
	// Reason explains why the value is invalid
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field %s (value: %v): %s", e.Field, e.Value, e.Reason)
}
