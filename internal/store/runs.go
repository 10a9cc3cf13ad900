package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// RunRepository provides data access for computation runs and their
// results.
type RunRepository struct {
	db DBTX
}

// NewRunRepository creates a RunRepository backed by db.
func NewRunRepository(db DBTX) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, station_id, status, base_start, base_end, indices, granularities,
	error_message, created_at, started_at, completed_at`

func scanRun(row pgx.Row) (*Run, error) {
	var run Run
	var status string
	err := row.Scan(
		&run.ID,
		&run.StationID,
		&status,
		&run.BaseStart,
		&run.BaseEnd,
		&run.Indices,
		&run.Granularities,
		&run.ErrorMessage,
		&run.CreatedAt,
		&run.StartedAt,
		&run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	return &run, nil
}

// Create inserts a pending run.
func (r *RunRepository) Create(ctx context.Context, run *Run) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO runs (id, station_id, status, base_start, base_end, indices, granularities)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.StationID, string(RunPending), run.BaseStart, run.BaseEnd,
		run.Indices, run.Granularities,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// MarkRunning transitions a run to running and stamps started_at.
func (r *RunRepository) MarkRunning(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE runs SET status = $1, started_at = now() WHERE id = $2`,
		string(RunRunning), id,
	)
	if err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkCompleted transitions a run to completed. note carries partial
// failure detail when some requested indices could not be computed;
// clean runs pass an empty note.
func (r *RunRepository) MarkCompleted(ctx context.Context, id, note string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE runs SET status = $1, error_message = $2, completed_at = now() WHERE id = $3`,
		string(RunCompleted), note, id,
	)
	if err != nil {
		return fmt.Errorf("mark run completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed transitions a run to failed and records the error text.
func (r *RunRepository) MarkFailed(ctx context.Context, id, message string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE runs SET status = $1, error_message = $2, completed_at = now() WHERE id = $3`,
		string(RunFailed), message, id,
	)
	if err != nil {
		return fmt.Errorf("mark run failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID fetches a run, returning ErrNotFound when absent.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListByStation returns a station's runs, newest first.
func (r *RunRepository) ListByStation(ctx context.Context, stationID string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+runColumns+` FROM runs WHERE station_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		stationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var status string
		if err := rows.Scan(
			&run.ID, &run.StationID, &status, &run.BaseStart, &run.BaseEnd,
			&run.Indices, &run.Granularities, &run.ErrorMessage,
			&run.CreatedAt, &run.StartedAt, &run.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = RunStatus(status)
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

var resultColumns = []string{"run_id", "index_name", "variable", "granularity", "group_label", "value"}

// resultSource adapts index results to pgx.CopyFromSource.
type resultSource struct {
	results []IndexResult
	idx     int
}

func newResultSource(results []IndexResult) *resultSource {
	return &resultSource{results: results, idx: -1}
}

func (s *resultSource) Next() bool {
	s.idx++
	return s.idx < len(s.results)
}

func (s *resultSource) Values() ([]any, error) {
	res := s.results[s.idx]
	return []any{res.RunID, res.Index, res.Variable, res.Granularity, res.GroupLabel, res.Value}, nil
}

func (s *resultSource) Err() error { return nil }

// SaveResults bulk-loads a run's results via COPY.
func (r *RunRepository) SaveResults(ctx context.Context, results []IndexResult) (int64, error) {
	if len(results) == 0 {
		return 0, nil
	}
	n, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"index_results"},
		resultColumns,
		newResultSource(results),
	)
	if err != nil {
		return 0, fmt.Errorf("copy results: %w", err)
	}
	return n, nil
}

// ListResults returns a run's results grouped by index then label order.
func (r *RunRepository) ListResults(ctx context.Context, runID string) ([]IndexResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT run_id, index_name, variable, granularity, group_label, value
		 FROM index_results WHERE run_id = $1
		 ORDER BY index_name, granularity, id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []IndexResult
	for rows.Next() {
		var res IndexResult
		if err := rows.Scan(&res.RunID, &res.Index, &res.Variable, &res.Granularity, &res.GroupLabel, &res.Value); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}
