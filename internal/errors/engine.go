package errors

import (
	"errors"
	"fmt"
	"net/http"

	"climex/internal/climate"
)

// FromEngine maps climate engine errors to API errors. Validation
// problems are client errors; structurally sound requests the engine
// cannot honor (wrong calendar, thin base coverage) are unprocessable.
func FromEngine(err error) *APIError {
	if err == nil {
		return nil
	}

	var validationErr climate.ValidationError
	if errors.As(err, &validationErr) {
		return NewWithDetails(
			http.StatusBadRequest,
			"VALIDATION_ERROR",
			validationErr.Message,
			map[string]any{"field": validationErr.Field, "value": fmt.Sprintf("%v", validationErr.Value)},
		)
	}

	var calendarErr *climate.CalendarMismatchError
	if errors.As(err, &calendarErr) {
		return NewWithDetails(
			http.StatusUnprocessableEntity,
			"CALENDAR_MISMATCH",
			calendarErr.Error(),
			map[string]any{
				"variable": calendarErr.Variable,
				"got":      calendarErr.Got.String(),
				"want":     calendarErr.Want.String(),
			},
		)
	}

	var baseErr *climate.InsufficientBaseDataError
	if errors.As(err, &baseErr) {
		return NewWithDetails(
			http.StatusUnprocessableEntity,
			"INSUFFICIENT_BASE_DATA",
			baseErr.Error(),
			map[string]any{
				"variable": baseErr.Variable,
				"year":     baseErr.Year,
				"present":  baseErr.Present,
				"floor":    baseErr.Floor,
			},
		)
	}

	var unknownErr *climate.UnknownVariableError
	if errors.As(err, &unknownErr) {
		return NewWithDetails(
			http.StatusBadRequest,
			"UNKNOWN_VARIABLE",
			unknownErr.Error(),
			map[string]any{"variable": unknownErr.Variable},
		)
	}

	return ErrInternal
}
