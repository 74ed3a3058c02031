package rentals

import (
	"errors"
	"fmt"
	"strings"
)

// Loader errors
var (
	ErrDatasetNotFound = errors.New("dataset file not found")
	ErrSchemaMismatch  = errors.New("schema mismatch")
	ErrMalformedRows   = errors.New("malformed rows")
	ErrEmptyFile       = errors.New("dataset file has no header row")
)

// SchemaError lists the required columns missing from a dataset header.
type SchemaError struct {
	Profile string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema mismatch: missing required columns [%s] (profile %s)",
		strings.Join(e.Missing, ", "), e.Profile)
}

// Is lets errors.Is match ErrSchemaMismatch.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

// RowError describes a single unparseable row. Line is 1-based and counts the header.
type RowError struct {
	Line   int
	Column string
	Value  string
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: column %s: %s (value %q)", e.Line, e.Column, e.Reason, e.Value)
}
