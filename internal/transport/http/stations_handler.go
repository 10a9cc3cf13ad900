package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "climex/internal/errors"
	"climex/internal/store"
)

// StationResponse is the JSON view of a station.
type StationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Elevation float64   `json:"elevation"`
	Calendar  string    `json:"calendar"`
	CreatedAt time.Time `json:"created_at"`
}

func toStationResponse(st *store.Station) StationResponse {
	return StationResponse{
		ID:        st.ID,
		Name:      st.Name,
		Latitude:  st.Latitude,
		Longitude: st.Longitude,
		Elevation: st.Elevation,
		Calendar:  st.Calendar,
		CreatedAt: st.CreatedAt,
	}
}

// StationsHandler handles station endpoints.
type StationsHandler struct {
	service ComputeServiceInterface
	logger  *slog.Logger
}

// NewStationsHandler creates a stations handler.
func NewStationsHandler(service ComputeServiceInterface, logger *slog.Logger) *StationsHandler {
	return &StationsHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "stations")),
	}
}

// Routes returns the station routes.
func (h *StationsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListStations)
	r.Get("/{id}", h.GetStation)
	return r
}

// ListStations handles GET /api/stations.
func (h *StationsHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stations, err := h.service.ListStations(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list stations",
			slog.String("error", err.Error()))
		apierrors.WriteError(w, r, mapServiceError(err))
		return
	}

	out := make([]StationResponse, len(stations))
	for i, st := range stations {
		out[i] = toStationResponse(st)
	}
	render.JSON(w, r, map[string]any{
		"success": true,
		"data":    out,
		"count":   len(out),
	})
}

// GetStation handles GET /api/stations/{id}.
func (h *StationsHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	station, err := h.service.GetStation(ctx, id)
	if err != nil {
		apierrors.WriteError(w, r, mapServiceError(err))
		return
	}
	render.JSON(w, r, map[string]any{
		"success": true,
		"data":    toStationResponse(station),
	})
}
