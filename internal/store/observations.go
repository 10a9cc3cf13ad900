package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ObservationRepository provides data access for daily observation
// series.
type ObservationRepository struct {
	db DBTX
}

// NewObservationRepository creates an ObservationRepository backed by db.
func NewObservationRepository(db DBTX) *ObservationRepository {
	return &ObservationRepository{db: db}
}

var observationColumns = []string{"station_id", "variable", "year", "month", "day", "value"}

// observationSource adapts a slice of observations to pgx.CopyFromSource.
type observationSource struct {
	obs []Observation
	idx int
}

func newObservationSource(obs []Observation) *observationSource {
	return &observationSource{obs: obs, idx: -1}
}

func (s *observationSource) Next() bool {
	s.idx++
	return s.idx < len(s.obs)
}

func (s *observationSource) Values() ([]any, error) {
	o := s.obs[s.idx]
	return []any{o.StationID, o.Variable, int16(o.Year), int16(o.Month), int16(o.Day), o.Value}, nil
}

func (s *observationSource) Err() error { return nil }

// BulkInsert loads observations via COPY. Existing rows for the same
// (station, variable, date) cause a constraint error; use Replace to
// overwrite a series.
func (r *ObservationRepository) BulkInsert(ctx context.Context, obs []Observation) (int64, error) {
	if len(obs) == 0 {
		return 0, nil
	}
	n, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"observations"},
		observationColumns,
		newObservationSource(obs),
	)
	if err != nil {
		return 0, fmt.Errorf("copy observations: %w", err)
	}
	return n, nil
}

// Replace deletes a station variable's series and loads obs in its place.
func (r *ObservationRepository) Replace(ctx context.Context, stationID, variable string, obs []Observation) (int64, error) {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM observations WHERE station_id = $1 AND variable = $2`,
		stationID, variable,
	); err != nil {
		return 0, fmt.Errorf("delete observations: %w", err)
	}
	return r.BulkInsert(ctx, obs)
}

// ListSeries returns the full series for one station variable in
// chronological order.
func (r *ObservationRepository) ListSeries(ctx context.Context, stationID, variable string) ([]Observation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT station_id, variable, year, month, day, value
		 FROM observations
		 WHERE station_id = $1 AND variable = $2
		 ORDER BY year, month, day`,
		stationID, variable,
	)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var o Observation
		var year, month, day int16
		if err := rows.Scan(&o.StationID, &o.Variable, &year, &month, &day, &o.Value); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.Year, o.Month, o.Day = int(year), int(month), int(day)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	return out, nil
}

// Variables returns the distinct variables stored for a station.
func (r *ObservationRepository) Variables(ctx context.Context, stationID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT variable FROM observations WHERE station_id = $1 ORDER BY variable`,
		stationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query variables: %w", err)
	}
	defer rows.Close()

	var vars []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan variable: %w", err)
		}
		vars = append(vars, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query variables: %w", err)
	}
	return vars, nil
}
