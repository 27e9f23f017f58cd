package defect

import "errors"

var (
	// ErrMalformedTable indicates a formation-energy table that violates
	// ordering or shape invariants.
	ErrMalformedTable = errors.New("defect: malformed formation-energy table")
	// ErrBadConfig indicates an invalid builder configuration.
	ErrBadConfig = errors.New("defect: invalid build configuration")
)
