// Package store provides PostgreSQL-backed repositories for stations,
// observation series, computation runs, and API keys. All repositories
// accept a DBTX so the same code runs against a pool or inside a
// transaction.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Station is an observation site with a fixed calendar.
type Station struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
	Elevation float64
	Calendar  string
	CreatedAt time.Time
}

// Observation is one daily value of one variable at a station. Dates are
// stored as year/month/day components because fixed-calendar dates
// (e.g. 30 February in a 360-day calendar) do not exist in SQL DATE.
type Observation struct {
	StationID string
	Variable  string
	Year      int
	Month     int
	Day       int
	Value     *float64 // nil marks a missing value
}

// RunStatus is the lifecycle state of a computation run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// IsValid reports whether s is a known status.
func (s RunStatus) IsValid() bool {
	switch s {
	case RunPending, RunRunning, RunCompleted, RunFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the run has finished.
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed
}

// Run is one index computation request and its lifecycle.
type Run struct {
	ID            string
	StationID     string
	Status        RunStatus
	BaseStart     int
	BaseEnd       int
	Indices       []string
	Granularities []string
	ErrorMessage  string
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// IndexResult is one computed index value for one factor group.
type IndexResult struct {
	RunID       string
	Index       string
	Variable    string
	Granularity string
	GroupLabel  string
	Value       *float64 // nil marks a masked/missing result
}

// APIKey is a named credential. Only the bcrypt hash is stored.
type APIKey struct {
	ID        string
	Name      string
	KeyHash   string
	CreatedAt time.Time
	RevokedAt *time.Time
}
