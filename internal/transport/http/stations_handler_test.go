package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climex/internal/store"
)

func stationsRouter(svc ComputeServiceInterface) chi.Router {
	r := chi.NewRouter()
	r.Mount("/api/stations", NewStationsHandler(svc, discardLogger()).Routes())
	return r
}

func TestListStations(t *testing.T) {
	svc := &fakeComputeService{stations: []*store.Station{
		{ID: "st-1", Name: "Reykjavik", Latitude: 64.1, Longitude: -21.9, Calendar: "365_day", CreatedAt: time.Now()},
		{ID: "st-2", Name: "Hobart", Latitude: -42.9, Longitude: 147.3, Calendar: "gregorian", CreatedAt: time.Now()},
	}}
	router := stationsRouter(svc)

	rec := doJSON(t, router, http.MethodGet, "/api/stations", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["count"])

	data := body["data"].([]any)
	first := data[0].(map[string]any)
	assert.Equal(t, "st-1", first["id"])
	assert.Equal(t, "Reykjavik", first["name"])
	assert.Equal(t, 64.1, first["latitude"])
}

func TestGetStation(t *testing.T) {
	svc := &fakeComputeService{station: &store.Station{ID: "st-1", Name: "Reykjavik", Calendar: "365_day"}}
	router := stationsRouter(svc)

	rec := doJSON(t, router, http.MethodGet, "/api/stations/st-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, "365_day", data["calendar"])
}

func TestGetStation_NotFound(t *testing.T) {
	router := stationsRouter(&fakeComputeService{stationErr: store.ErrNotFound})

	rec := doJSON(t, router, http.MethodGet, "/api/stations/ghost", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}
