package climate

import "fmt"

// ValidationError reports a rejected input parameter. Validation happens
// once at session construction or at the top of each stateless function, so
// the computation kernels never re-check.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	return ve.Message
}

// CalendarMismatchError reports a variable whose calendar disagrees with the
// calendar of the first variable in the session.
type CalendarMismatchError struct {
	Variable string
	Got      Calendar
	Want     Calendar
}

// Error implements the error interface
func (e *CalendarMismatchError) Error() string {
	return fmt.Sprintf("variable %q uses calendar %s, session calendar is %s", e.Variable, e.Got, e.Want)
}

// InsufficientBaseDataError reports a base year whose non-missing day count
// falls below the coverage floor required for threshold computation. The
// error is fatal for every threshold-based index of the variable, but other
// variables in the session are unaffected.
type InsufficientBaseDataError struct {
	Variable string
	Year     int
	Present  int
	Floor    int
}

// Error implements the error interface
func (e *InsufficientBaseDataError) Error() string {
	return fmt.Sprintf("variable %q: base year %d has %d non-missing days, need at least %d", e.Variable, e.Year, e.Present, e.Floor)
}

// UnknownVariableError reports a lookup for a variable name the session was
// not constructed with.
type UnknownVariableError struct {
	Variable string
}

// Error implements the error interface
func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("unknown variable %q", e.Variable)
}

// Undefined quantiles are not errors: a day-of-year window with too little
// data yields NaN for that day and computation continues. Only base-period
// coverage failures abort threshold computation.
