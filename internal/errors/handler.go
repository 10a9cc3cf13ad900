package errors

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"strings"

	"github.com/go-chi/render"

	"climex/internal/infrastructure"
)

// ErrorHandler converts errors to RFC 7807 responses and logs them.
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates an error handler. includeStack should only be
// true in development builds.
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError logs err and writes it as an RFC 7807 problem response.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	traceID := infrastructure.GetTraceID(r.Context())

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem := h.ErrorToProblem(err, r)
	if traceID != "" {
		problem.WithExtension("trace_id", traceID)
	}
	if h.includeStack {
		problem.WithExtension("stack", stackTrace())
	}

	render.Render(w, r, problem)
}

// ErrorToProblem converts any error to problem details.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErrorToProblem(apiErr, r)
	}

	// Engine errors arriving unwrapped still map to the right status.
	if engineErr := FromEngine(err); engineErr != ErrInternal {
		return apiErrorToProblem(engineErr, r)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	)
}

func apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	pd := NewProblemDetails(
		apiErr.StatusCode,
		typeForCode(apiErr),
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("code", apiErr.ErrorCode)
	if apiErr.Details != nil {
		pd.WithExtension("details", apiErr.Details)
	}
	return pd
}

func typeForCode(apiErr *APIError) string {
	switch apiErr.ErrorCode {
	case "VALIDATION_ERROR", "INVALID_REQUEST":
		return TypeValidation
	case "UNKNOWN_VARIABLE":
		return TypeUnknownVariable
	case "CALENDAR_MISMATCH":
		return TypeCalendarMismatch
	case "INSUFFICIENT_BASE_DATA":
		return TypeInsufficientBaseData
	case "RUN_NOT_FOUND":
		return TypeRunNotFound
	case "STATION_NOT_FOUND":
		return TypeStationNotFound
	case "NOT_FOUND":
		return TypeNotFound
	case "UNAUTHORIZED":
		return TypeUnauthorized
	case "RATE_LIMITED":
		return TypeRateLimit
	case "SERVICE_UNAVAILABLE":
		return TypeUnavailable
	default:
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			return TypeNotFound
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			return TypeValidation
		default:
			return TypeInternal
		}
	}
}

func stackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	lines := strings.Split(string(buf[:n]), "\n")
	if len(lines) > 20 {
		lines = lines[:20]
	}
	return strings.Join(lines, "\n")
}
