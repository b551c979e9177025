package ml

import (
	"errors"
	"fmt"
	"strings"
)

// ErrModelNotReady is returned by Predict before any successful Fit.
var ErrModelNotReady = errors.New("model not trained")

// DataFormatError reports a datetime field that could not be parsed.
type DataFormatError struct {
	Field string
	Value string
}

func (e *DataFormatError) Error() string {
	return fmt.Sprintf("malformed datetime in %s: %q", e.Field, e.Value)
}

// SchemaError reports mandatory attributes missing from a record.
type SchemaError struct {
	Index   int
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("record %d missing required attributes: %s", e.Index, strings.Join(e.Missing, ", "))
}

// InsufficientDataError reports a training set that cannot support a fit:
// empty, or containing a single class only.
type InsufficientDataError struct {
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return "insufficient training data: " + e.Reason
}
