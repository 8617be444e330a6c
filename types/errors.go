package types

import "errors"

var (
	// ErrMissingInput is returned when a reference table the service cannot run without is absent.
	ErrMissingInput = errors.New("missing input")
	// ErrMalformedTable is returned for reference tables of an unknown shape.
	ErrMalformedTable = errors.New("malformed reference table")
)
