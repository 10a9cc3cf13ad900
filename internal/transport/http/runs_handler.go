package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"climex/internal/climate"
	apierrors "climex/internal/errors"
	"climex/internal/indices"
	"climex/internal/services"
	"climex/internal/store"
)

var validate = validator.New()

// CreateRunRequest is the POST /api/runs payload. Empty indices select
// the full catalog; empty granularities select everything an index
// supports. base_start and base_end must be given together.
type CreateRunRequest struct {
	StationID     string   `json:"station_id" validate:"required"`
	Indices       []string `json:"indices" validate:"omitempty,dive,required"`
	Granularities []string `json:"granularities" validate:"omitempty,dive,oneof=annual halfyear seasonal monthly"`
	BaseStart     int      `json:"base_start" validate:"omitempty,min=1"`
	BaseEnd       int      `json:"base_end" validate:"omitempty,min=1"`
}

// RunResponse is the JSON view of a run.
type RunResponse struct {
	ID            string     `json:"id"`
	StationID     string     `json:"station_id"`
	Status        string     `json:"status"`
	BaseStart     int        `json:"base_start"`
	BaseEnd       int        `json:"base_end"`
	Indices       []string   `json:"indices"`
	Granularities []string   `json:"granularities"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// ResultResponse is the JSON view of one computed index value. A null
// value marks a group masked by the missing-day tolerance.
type ResultResponse struct {
	Index       string   `json:"index"`
	Variable    string   `json:"variable"`
	Granularity string   `json:"granularity"`
	Group       string   `json:"group"`
	Value       *float64 `json:"value"`
}

func toRunResponse(run *store.Run) RunResponse {
	return RunResponse{
		ID:            run.ID,
		StationID:     run.StationID,
		Status:        string(run.Status),
		BaseStart:     run.BaseStart,
		BaseEnd:       run.BaseEnd,
		Indices:       run.Indices,
		Granularities: run.Granularities,
		ErrorMessage:  run.ErrorMessage,
		CreatedAt:     run.CreatedAt,
		StartedAt:     run.StartedAt,
		CompletedAt:   run.CompletedAt,
	}
}

func toResultResponses(results []store.IndexResult) []ResultResponse {
	out := make([]ResultResponse, len(results))
	for i, res := range results {
		out[i] = ResultResponse{
			Index:       res.Index,
			Variable:    res.Variable,
			Granularity: res.Granularity,
			Group:       res.GroupLabel,
			Value:       res.Value,
		}
	}
	return out
}

// RunsHandler handles computation run endpoints.
type RunsHandler struct {
	service ComputeServiceInterface
	logger  *slog.Logger
}

// NewRunsHandler creates a runs handler.
func NewRunsHandler(service ComputeServiceInterface, logger *slog.Logger) *RunsHandler {
	return &RunsHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "runs")),
	}
}

// Routes returns the run routes.
func (h *RunsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateRun)
	r.Get("/", h.ListRuns)
	r.Get("/{id}", h.GetRun)
	return r
}

// CreateRun handles POST /api/runs. The run executes asynchronously;
// the response carries the pending run for status polling.
func (h *RunsHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRunRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		apierrors.WriteError(w, r, apierrors.New(
			http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON"))
		return
	}
	if err := validate.Struct(req); err != nil {
		apierrors.WriteError(w, r, validationError(err))
		return
	}
	if (req.BaseStart == 0) != (req.BaseEnd == 0) {
		apierrors.WriteError(w, r, apierrors.New(
			http.StatusBadRequest, "VALIDATION_ERROR",
			"base_start and base_end must be given together"))
		return
	}

	computeReq := services.ComputeRequest{
		StationID:     req.StationID,
		Indices:       req.Indices,
		Granularities: req.Granularities,
	}
	if req.BaseStart != 0 {
		computeReq.Base = &climate.BaseRange{StartYear: req.BaseStart, EndYear: req.BaseEnd}
	}

	run, err := h.service.Submit(ctx, computeReq)
	if err != nil {
		h.logger.WarnContext(ctx, "run submission rejected",
			slog.String("station_id", req.StationID),
			slog.String("error", err.Error()))
		apierrors.WriteError(w, r, mapServiceError(err))
		return
	}

	h.logger.InfoContext(ctx, "run accepted",
		slog.String("run_id", run.ID),
		slog.String("station_id", run.StationID))

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]any{
		"success": true,
		"data":    toRunResponse(run),
	})
}

// GetRun handles GET /api/runs/{id}. Results appear once the run has
// reached a terminal status.
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	run, results, err := h.service.GetRun(ctx, id)
	if err != nil {
		apierrors.WriteError(w, r, mapServiceError(err))
		return
	}

	data := map[string]any{"run": toRunResponse(run)}
	if results != nil {
		data["results"] = toResultResponses(results)
	}
	render.JSON(w, r, map[string]any{
		"success": true,
		"data":    data,
	})
}

// ListRuns handles GET /api/runs?station=...&limit=... listing a
// station's runs, newest first.
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stationID := r.URL.Query().Get("station")
	if stationID == "" {
		apierrors.WriteError(w, r, apierrors.New(
			http.StatusBadRequest, "VALIDATION_ERROR",
			"station query parameter is required"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			apierrors.WriteError(w, r, apierrors.New(
				http.StatusBadRequest, "VALIDATION_ERROR",
				"limit must be a positive integer"))
			return
		}
		limit = n
	}

	runs, err := h.service.ListRuns(ctx, stationID, limit)
	if err != nil {
		apierrors.WriteError(w, r, mapServiceError(err))
		return
	}

	out := make([]RunResponse, len(runs))
	for i, run := range runs {
		out[i] = toRunResponse(run)
	}
	render.JSON(w, r, map[string]any{
		"success": true,
		"data":    out,
		"count":   len(out),
	})
}

// validationError converts validator field errors into a 400 with
// per-field details.
func validationError(err error) *apierrors.APIError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.ErrInvalidRequest
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = fe.Tag()
	}
	return apierrors.NewWithDetails(
		http.StatusBadRequest, "VALIDATION_ERROR",
		"Request validation failed", details)
}

// mapServiceError maps service and engine errors onto API errors.
func mapServiceError(err error) *apierrors.APIError {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apierrors.New(http.StatusNotFound, "NOT_FOUND", "The requested resource was not found")
	case errors.Is(err, services.ErrNoObservations):
		return apierrors.New(http.StatusNotFound, "NO_OBSERVATIONS", err.Error())
	case errors.Is(err, indices.ErrUnknownIndex):
		return apierrors.New(http.StatusBadRequest, "UNKNOWN_INDEX", err.Error())
	}
	return apierrors.FromEngine(err)
}
