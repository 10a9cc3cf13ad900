package services

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"climex/internal/climate"
	"climex/internal/config"
	"climex/internal/store"
	"climex/internal/websocket"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns a configuration matched to the 2001-2004 fixtures.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Engine.BaseStart = 2001
	cfg.Engine.BaseEnd = 2002
	cfg.Engine.MaxConcurrentVariables = 2
	return cfg
}

type fakeStations struct {
	mu       sync.Mutex
	stations map[string]*store.Station
}

func newFakeStations(stations ...*store.Station) *fakeStations {
	f := &fakeStations{stations: make(map[string]*store.Station)}
	for _, s := range stations {
		f.stations[s.ID] = s
	}
	return f
}

func (f *fakeStations) GetByID(_ context.Context, id string) (*store.Station, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s, nil
}

func (f *fakeStations) List(context.Context) ([]*store.Station, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*store.Station, 0, len(f.stations))
	for _, s := range f.stations {
		out = append(out, s)
	}
	return out, nil
}

type fakeObservations struct {
	mu     sync.Mutex
	series map[string][]store.Observation // stationID/variable
	errs   map[string]error
}

func newFakeObservations() *fakeObservations {
	return &fakeObservations{
		series: make(map[string][]store.Observation),
		errs:   make(map[string]error),
	}
}

func obsKey(stationID, variable string) string {
	return stationID + "/" + variable
}

func (f *fakeObservations) put(stationID, variable string, obs []store.Observation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.series[obsKey(stationID, variable)] = obs
}

func (f *fakeObservations) failWith(stationID, variable string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[obsKey(stationID, variable)] = err
}

func (f *fakeObservations) ListSeries(_ context.Context, stationID, variable string) ([]store.Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[obsKey(stationID, variable)]; err != nil {
		return nil, err
	}
	return f.series[obsKey(stationID, variable)], nil
}

func (f *fakeObservations) Variables(_ context.Context, stationID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, v := range []string{"prec", "tavg", "tmax", "tmin"} {
		if len(f.series[obsKey(stationID, v)]) > 0 {
			out = append(out, v)
		}
	}
	return out, nil
}

type fakeRuns struct {
	mu      sync.Mutex
	runs    map[string]*store.Run
	results map[string][]store.IndexResult
	notes   map[string]string
}

func newFakeRuns() *fakeRuns {
	return &fakeRuns{
		runs:    make(map[string]*store.Run),
		results: make(map[string][]store.IndexResult),
		notes:   make(map[string]string),
	}
}

func (f *fakeRuns) Create(_ context.Context, run *store.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *run
	f.runs[run.ID] = &cp
	return nil
}

func (f *fakeRuns) setStatus(id string, status store.RunStatus, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return store.ErrNotFound
	}
	run.Status = status
	run.ErrorMessage = message
	return nil
}

func (f *fakeRuns) MarkRunning(_ context.Context, id string) error {
	return f.setStatus(id, store.RunRunning, "")
}

func (f *fakeRuns) MarkCompleted(_ context.Context, id, note string) error {
	f.mu.Lock()
	f.notes[id] = note
	f.mu.Unlock()
	return f.setStatus(id, store.RunCompleted, note)
}

func (f *fakeRuns) MarkFailed(_ context.Context, id, message string) error {
	return f.setStatus(id, store.RunFailed, message)
}

func (f *fakeRuns) GetByID(_ context.Context, id string) (*store.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *run
	return &cp, nil
}

func (f *fakeRuns) ListByStation(_ context.Context, stationID string, _ int) ([]*store.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*store.Run
	for _, run := range f.runs {
		if run.StationID == stationID {
			cp := *run
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRuns) SaveResults(_ context.Context, results []store.IndexResult) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, res := range results {
		f.results[res.RunID] = append(f.results[res.RunID], res)
	}
	return int64(len(results)), nil
}

func (f *fakeRuns) ListResults(_ context.Context, runID string) ([]store.IndexResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results[runID], nil
}

func (f *fakeRuns) status(id string) store.RunStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return ""
	}
	return run.Status
}

func (f *fakeRuns) resultCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results[id])
}

type fakeProgress struct {
	mu     sync.Mutex
	events []websocket.RunEvent
}

func (f *fakeProgress) PublishRun(event websocket.RunEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeProgress) stages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		out = append(out, e.Stage)
	}
	return out
}

func (f *fakeProgress) snapshot() []websocket.RunEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]websocket.RunEvent(nil), f.events...)
}

// obsRows builds a daily 365-day-calendar series from startYear through
// endYear.
func obsRows(stationID, variable string, startYear, endYear int, value func(climate.Date) float64) []store.Observation {
	cal := climate.Calendar365Day
	var rows []store.Observation
	for year := startYear; year <= endYear; year++ {
		end := cal.YearEnd(year)
		for d := cal.YearStart(year); !d.After(end); d = cal.Next(d) {
			v := value(d)
			rows = append(rows, store.Observation{
				StationID: stationID,
				Variable:  variable,
				Year:      d.Year,
				Month:     int(d.Month),
				Day:       d.Day,
				Value:     &v,
			})
		}
	}
	return rows
}

// nilValueRows maps every day of a series to a missing value.
func nilValueRows(rows []store.Observation) []store.Observation {
	out := make([]store.Observation, len(rows))
	for i, row := range rows {
		row.Value = nil
		out[i] = row
	}
	return out
}

// testStation is the shared fixture site: far enough north that the
// hemisphere derivation picks the calendar-year season.
func testStation() *store.Station {
	return &store.Station{
		ID:       "st-1",
		Name:     "Reykjavik",
		Latitude: 64.1,
		Calendar: "365_day",
	}
}

// rampValue mirrors a smooth seasonal ramp: identical across years so
// percentile indices stay at their floor.
func rampValue(base float64) func(climate.Date) float64 {
	cal := climate.Calendar365Day
	return func(d climate.Date) float64 {
		return base + 0.01*float64(cal.DayOfYear(d))
	}
}
