// Package errs holds the sentinel errors for the window view engine's
// configuration-error taxonomy. They are plain comparable values, checked
// with errors.Is, in the same spirit as the rest of this codebase: no
// custom error-code framework, just wrapped stdlib errors.
package errs

import "errors"

// Configuration errors: fatal at view-construction time.
var (
	ErrMissingSelect           = errors.New("windowview: missing select")
	ErrUnionNotSupported       = errors.New("windowview: union is not supported in a window view")
	ErrNoGroupBy               = errors.New("windowview: window view requires a group by clause")
	ErrNoWindowFunction        = errors.New("windowview: window view requires a window function")
	ErrMultipleWindowFunctions = errors.New("windowview: window view supports only one time window function")
	ErrFractionalInterval      = errors.New("windowview: fractional-second interval kinds are not supported")
	ErrTTLOnInnerTable         = errors.New("windowview: TTL on the inner table is not supported")
	ErrNowWithEventTime        = errors.New("windowview: now() time column cannot be combined with event time")
)

// Runtime argument errors: surfaced to the caller of the offending operation.
var (
	ErrNotAnInterval      = errors.New("windowview: argument is not a valid interval")
	ErrNonPositiveUnits   = errors.New("windowview: interval unit count must be positive")
	ErrInvalidIntervalArg = errors.New("windowview: interval literal must be a string or unsigned integer")
)

// Lookup errors: a named table/resource could not be found.
var (
	ErrInnerTableMissing  = errors.New("windowview: inner table not found")
	ErrTargetTableMissing = errors.New("windowview: target table not found")
	ErrParentTableMissing = errors.New("windowview: parent table not found")
)

// Lifecycle errors.
var (
	ErrExperimentalWindowViewDisabled = errors.New("windowview: set AllowExperimentalWindowView to use window views")
	ErrViewShutDown                   = errors.New("windowview: view is shut down")
	ErrAlreadyStarted                 = errors.New("windowview: view already started")
)
