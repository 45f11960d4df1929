// Package track holds the error taxonomy shared by the circuit generation
// stages in its subpackages.
package track

import "errors"

var (
	// ErrInvalidParameter is returned before any generation work begins when
	// a numeric parameter is out of range.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrDegenerateGeometry marks geometry that cannot be evaluated, such as
	// a zero-length curve. Stages recover from it locally.
	ErrDegenerateGeometry = errors.New("degenerate geometry")

	// ErrMissingDependency marks a stage invoked before its inputs exist.
	// Stages log it as a warning and produce no output.
	ErrMissingDependency = errors.New("missing dependency")
)
