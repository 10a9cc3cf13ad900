package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"climex/internal/climate"
	"climex/internal/config"
	"climex/internal/indices"
	"climex/internal/infrastructure"
	"climex/internal/store"
	"climex/internal/websocket"
)

// ComputeRequest describes one index computation run.
type ComputeRequest struct {
	StationID     string
	Indices       []string // empty selects the full catalog
	Granularities []string // empty selects every granularity an index supports
	Base          *climate.BaseRange // nil uses the configured default
}

// RunOutcome is the in-memory result of an executed run. Failed maps
// "index/granularity" to the reason that pair produced no series.
type RunOutcome struct {
	Run    *store.Run
	Series []*indices.Series
	Failed map[string]string
}

// ComputeDeps bundles the collaborators a ComputeService needs.
type ComputeDeps struct {
	Stations     StationStore
	Observations ObservationStore
	Runs         RunStore
	Progress     ProgressPublisher
	Metrics      *infrastructure.BusinessMetrics
}

// ComputeService orchestrates index computation runs: it loads the
// station's observation series, builds an engine session, warms
// percentile thresholds in parallel, computes the requested indices,
// and persists the results. Progress is published to the hub at each
// stage.
type ComputeService struct {
	stations StationStore
	obs      ObservationStore
	runs     RunStore
	progress ProgressPublisher
	metrics  *infrastructure.BusinessMetrics
	cfg      *config.Config
	logger   *slog.Logger
}

// NewComputeService creates a ComputeService. Progress and Metrics may
// be nil.
func NewComputeService(deps ComputeDeps, cfg *config.Config, logger *slog.Logger) *ComputeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComputeService{
		stations: deps.Stations,
		obs:      deps.Observations,
		runs:     deps.Runs,
		progress: deps.Progress,
		metrics:  deps.Metrics,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "compute_service")),
	}
}

// Submit validates the request, records a pending run, and starts its
// execution in the background. The returned run is in the pending state;
// callers follow completion through GetRun or the progress stream.
func (s *ComputeService) Submit(ctx context.Context, req ComputeRequest) (*store.Run, error) {
	run, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	s.publish(websocket.NewRunEvent(run.ID, websocket.StageQueued, 0, "run accepted"))

	go func() {
		// The run outlives the submitting request.
		bg := context.WithoutCancel(ctx)
		if _, err := s.Execute(bg, run); err != nil {
			s.logger.Error("run failed",
				slog.String("run_id", run.ID),
				slog.String("station_id", run.StationID),
				slog.String("error", err.Error()))
		}
	}()

	return run, nil
}

// prepare validates the request against the catalog and records the run.
func (s *ComputeService) prepare(ctx context.Context, req ComputeRequest) (*store.Run, error) {
	if _, err := s.stations.GetByID(ctx, req.StationID); err != nil {
		return nil, fmt.Errorf("station %s: %w", req.StationID, err)
	}

	names := req.Indices
	if len(names) == 0 {
		names = indices.Names()
	}
	resolved := make([]string, 0, len(names))
	seenIndex := make(map[string]bool, len(names))
	for _, name := range names {
		def, ok := indices.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("index %q: %w", name, indices.ErrUnknownIndex)
		}
		if seenIndex[def.Name] {
			continue
		}
		seenIndex[def.Name] = true
		resolved = append(resolved, def.Name)
	}

	grans := req.Granularities
	if len(grans) == 0 {
		for _, g := range climate.Granularities() {
			grans = append(grans, g.String())
		}
	}
	resolvedGrans := make([]string, 0, len(grans))
	seenGran := make(map[string]bool, len(grans))
	for _, gs := range grans {
		g, err := climate.ParseGranularity(gs)
		if err != nil {
			return nil, err
		}
		if seenGran[g.String()] {
			continue
		}
		seenGran[g.String()] = true
		resolvedGrans = append(resolvedGrans, g.String())
	}

	base := s.cfg.BaseRange()
	if req.Base != nil {
		base = *req.Base
	}
	if !base.IsValid() {
		return nil, climate.ValidationError{
			Field:   "base_range",
			Message: fmt.Sprintf("invalid base range %s", base),
			Value:   base,
		}
	}

	run := &store.Run{
		ID:            uuid.New().String(),
		StationID:     req.StationID,
		Status:        store.RunPending,
		BaseStart:     base.StartYear,
		BaseEnd:       base.EndYear,
		Indices:       resolved,
		Granularities: resolvedGrans,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	s.logger.Info("run accepted",
		slog.String("run_id", run.ID),
		slog.String("station_id", run.StationID),
		slog.Int("indices", len(run.Indices)))
	return run, nil
}

// Execute runs the computation pipeline for a prepared run. Individual
// index failures are isolated into the outcome's Failed map; only
// infrastructure errors (store, cancelled context, unusable input) fail
// the run as a whole.
func (s *ComputeService) Execute(ctx context.Context, run *store.Run) (*RunOutcome, error) {
	start := time.Now()
	s.metrics.RecordRunActive(ctx, 1)
	defer s.metrics.RecordRunActive(ctx, -1)

	if err := s.runs.MarkRunning(ctx, run.ID); err != nil {
		return nil, fmt.Errorf("mark running: %w", err)
	}
	s.publish(websocket.NewRunEvent(run.ID, websocket.StageLoading, 5, "loading observation series"))

	station, err := s.stations.GetByID(ctx, run.StationID)
	if err != nil {
		return s.fail(ctx, run, start, fmt.Errorf("station %s: %w", run.StationID, err))
	}

	session, err := s.buildSession(ctx, station, run)
	if err != nil {
		return s.fail(ctx, run, start, err)
	}

	s.publish(websocket.NewRunEvent(run.ID, websocket.StageThresholds, 25, "computing percentile thresholds"))
	s.warmThresholds(ctx, session)

	failed := make(map[string]string)
	pairs := planPairs(run, failed)

	var out []*indices.Series
	for i, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return s.fail(ctx, run, start, err)
		}
		series, err := indices.Compute(session, pair.name, pair.granularity)
		if err != nil {
			failed[pair.key()] = err.Error()
			continue
		}
		out = append(out, series)

		percent := 40 + 50*float64(i+1)/float64(len(pairs))
		s.publish(websocket.NewRunEvent(run.ID, websocket.StageComputing, percent, pair.key()))
	}

	if len(out) == 0 {
		return s.fail(ctx, run, start, fmt.Errorf("no indices could be computed: %s", firstReason(failed)))
	}

	s.publish(websocket.NewRunEvent(run.ID, websocket.StagePersisting, 92, "saving results"))
	if _, err := s.runs.SaveResults(ctx, toIndexResults(run.ID, out)); err != nil {
		return s.fail(ctx, run, start, fmt.Errorf("save results: %w", err))
	}

	note := partialNote(failed)
	if err := s.runs.MarkCompleted(ctx, run.ID, note); err != nil {
		return s.fail(ctx, run, start, fmt.Errorf("mark completed: %w", err))
	}
	run.Status = store.RunCompleted
	run.ErrorMessage = note

	hits, misses := session.CacheStats()
	s.metrics.RecordCacheStats(ctx, hits, misses)
	s.metrics.RecordRun(ctx, run.StationID, time.Since(start), len(out), nil)

	message := fmt.Sprintf("computed %d series", len(out))
	if note != "" {
		message = fmt.Sprintf("computed %d series, %d skipped", len(out), len(failed))
	}
	s.publish(websocket.NewRunEvent(run.ID, websocket.StageCompleted, 100, message))
	s.logger.Info("run completed",
		slog.String("run_id", run.ID),
		slog.String("station_id", run.StationID),
		slog.Int("series", len(out)),
		slog.Int("skipped", len(failed)),
		slog.Duration("duration", time.Since(start)))

	return &RunOutcome{Run: run, Series: out, Failed: failed}, nil
}

// buildSession loads the series the run needs, in parallel, and
// assembles the engine session. The hemisphere follows the station's
// latitude rather than the configured default.
func (s *ComputeService) buildSession(ctx context.Context, station *store.Station, run *store.Run) (*climate.Session, error) {
	calendar, err := climate.ParseCalendar(station.Calendar)
	if err != nil {
		return nil, fmt.Errorf("station %s: %w", station.ID, err)
	}

	needed := neededVariables(run.Indices)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Engine.MaxConcurrentVariables)

	var mu sync.Mutex
	var vars []climate.VariableSeries
	for _, name := range needed {
		g.Go(func() error {
			fetchStart := time.Now()
			rows, err := s.obs.ListSeries(gctx, station.ID, name)
			if err != nil {
				return fmt.Errorf("load %s series: %w", name, err)
			}
			s.metrics.RecordObservationFetch(gctx, name, time.Since(fetchStart), int64(len(rows)))
			if len(rows) == 0 {
				s.logger.Warn("variable has no observations",
					slog.String("station_id", station.ID),
					slog.String("variable", name))
				return nil
			}
			series := climate.VariableSeries{
				Name:         name,
				Class:        classForVariable(name),
				Calendar:     calendar,
				Observations: toObservations(rows),
			}
			mu.Lock()
			vars = append(vars, series)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(vars) == 0 {
		return nil, fmt.Errorf("station %s has no observations for %s",
			station.ID, strings.Join(needed, ", "))
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })

	cc, err := s.cfg.ClimateConfig()
	if err != nil {
		return nil, err
	}
	cc.NorthernHemisphere = station.Latitude >= 0

	base := climate.BaseRange{StartYear: run.BaseStart, EndYear: run.BaseEnd}
	return climate.NewSession(vars, base, cc, s.logger)
}

// warmThresholds precomputes percentile thresholds for every classed
// variable, bounded by the configured concurrency. A variable whose
// thresholds cannot be computed (thin base coverage) is only logged
// here; the indices that depend on it fail individually later, leaving
// the rest of the run intact.
func (s *ComputeService) warmThresholds(ctx context.Context, session *climate.Session) {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Engine.MaxConcurrentVariables)

	for _, name := range session.Variables() {
		class, ok := session.Class(name)
		if !ok || (class != climate.ClassTemperature && class != climate.ClassPrecipitation) {
			continue
		}
		g.Go(func() error {
			if _, err := session.Quantiles(name); err != nil {
				s.logger.Warn("threshold computation failed",
					slog.String("variable", name),
					slog.String("error", err.Error()))
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *ComputeService) fail(ctx context.Context, run *store.Run, start time.Time, err error) (*RunOutcome, error) {
	if markErr := s.runs.MarkFailed(ctx, run.ID, err.Error()); markErr != nil {
		s.logger.Error("failed to mark run failed",
			slog.String("run_id", run.ID),
			slog.String("error", markErr.Error()))
	}
	run.Status = store.RunFailed
	run.ErrorMessage = err.Error()

	s.metrics.RecordRun(ctx, run.StationID, time.Since(start), 0, err)
	s.publish(websocket.NewRunEvent(run.ID, websocket.StageFailed, 100, err.Error()))
	return nil, err
}

func (s *ComputeService) publish(event websocket.RunEvent) {
	if s.progress == nil {
		return
	}
	s.progress.PublishRun(event)
}

// GetRun returns a run and, once it has finished, its stored results.
func (s *ComputeService) GetRun(ctx context.Context, id string) (*store.Run, []store.IndexResult, error) {
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !run.Status.IsTerminal() {
		return run, nil, nil
	}
	results, err := s.runs.ListResults(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return run, results, nil
}

// ListRuns returns a station's runs, newest first.
func (s *ComputeService) ListRuns(ctx context.Context, stationID string, limit int) ([]*store.Run, error) {
	return s.runs.ListByStation(ctx, stationID, limit)
}

// ListStations returns all known stations.
func (s *ComputeService) ListStations(ctx context.Context) ([]*store.Station, error) {
	return s.stations.List(ctx)
}

// GetStation returns one station.
func (s *ComputeService) GetStation(ctx context.Context, id string) (*store.Station, error) {
	return s.stations.GetByID(ctx, id)
}

type computePair struct {
	name        string
	granularity climate.Granularity
}

func (p computePair) key() string {
	return p.name + "/" + p.granularity.String()
}

// planPairs expands a run's index and granularity lists into the
// (index, granularity) pairs to compute, skipping combinations an index
// does not support. Unknown names end up in failed.
func planPairs(run *store.Run, failed map[string]string) []computePair {
	var pairs []computePair
	for _, name := range run.Indices {
		def, ok := indices.Lookup(name)
		if !ok {
			failed[name] = indices.ErrUnknownIndex.Error()
			continue
		}
		for _, gs := range run.Granularities {
			g, err := climate.ParseGranularity(gs)
			if err != nil {
				failed[name+"/"+gs] = err.Error()
				continue
			}
			if !def.SupportsGranularity(g) {
				continue
			}
			pairs = append(pairs, computePair{name: def.Name, granularity: g})
		}
	}
	return pairs
}

// neededVariables returns the sorted union of variables required by the
// named indices.
func neededVariables(names []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, name := range names {
		def, ok := indices.Lookup(name)
		if !ok {
			continue
		}
		for _, v := range def.Variables {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	sort.Strings(out)
	return out
}

// classForVariable maps the canonical variable names onto engine
// classes. tavg stays unclassed: no catalog index needs thresholds on
// it, so computing a bootstrap cube for it would be wasted work.
func classForVariable(name string) climate.VariableClass {
	switch name {
	case indices.VarTmax, indices.VarTmin:
		return climate.ClassTemperature
	case indices.VarPrec:
		return climate.ClassPrecipitation
	default:
		return climate.ClassOther
	}
}

func toObservations(rows []store.Observation) []climate.Observation {
	out := make([]climate.Observation, len(rows))
	for i, row := range rows {
		value := math.NaN()
		if row.Value != nil {
			value = *row.Value
		}
		out[i] = climate.Observation{
			Date:  climate.NewDate(row.Year, time.Month(row.Month), row.Day),
			Value: value,
		}
	}
	return out
}

func toIndexResults(runID string, series []*indices.Series) []store.IndexResult {
	var out []store.IndexResult
	for _, sr := range series {
		for i, label := range sr.Labels {
			var value *float64
			if v := sr.Values[i]; !math.IsNaN(v) {
				vv := v
				value = &vv
			}
			out = append(out, store.IndexResult{
				RunID:       runID,
				Index:       sr.Index,
				Variable:    sr.Variable,
				Granularity: sr.Granularity.String(),
				GroupLabel:  label,
				Value:       value,
			})
		}
	}
	return out
}

// partialNote summarizes skipped pairs for the run record. The reasons
// are sorted so the note is stable.
func partialNote(failed map[string]string) string {
	if len(failed) == 0 {
		return ""
	}
	keys := make([]string, 0, len(failed))
	for k := range failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, failed[k]))
	}
	return "skipped " + strings.Join(parts, "; ")
}

func firstReason(failed map[string]string) string {
	keys := make([]string, 0, len(failed))
	for k := range failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return "no index/granularity pairs requested"
	}
	return fmt.Sprintf("%s: %s", keys[0], failed[keys[0]])
}
