package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// StationRepository provides data access for the stations table.
type StationRepository struct {
	db DBTX
}

// NewStationRepository creates a StationRepository backed by db.
func NewStationRepository(db DBTX) *StationRepository {
	return &StationRepository{db: db}
}

const stationColumns = `id, name, latitude, longitude, elevation, calendar, created_at`

func scanStation(row pgx.Row) (*Station, error) {
	var s Station
	err := row.Scan(&s.ID, &s.Name, &s.Latitude, &s.Longitude, &s.Elevation, &s.Calendar, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new station.
func (r *StationRepository) Create(ctx context.Context, s *Station) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO stations (id, name, latitude, longitude, elevation, calendar)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.Name, s.Latitude, s.Longitude, s.Elevation, s.Calendar,
	)
	if err != nil {
		return fmt.Errorf("insert station: %w", err)
	}
	return nil
}

// GetByID fetches a station, returning ErrNotFound when absent.
func (r *StationRepository) GetByID(ctx context.Context, id string) (*Station, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+stationColumns+` FROM stations WHERE id = $1`, id)
	s, err := scanStation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get station: %w", err)
	}
	return s, nil
}

// List returns all stations ordered by name.
func (r *StationRepository) List(ctx context.Context) ([]*Station, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+stationColumns+` FROM stations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	defer rows.Close()

	var stations []*Station
	for rows.Next() {
		var s Station
		if err := rows.Scan(&s.ID, &s.Name, &s.Latitude, &s.Longitude, &s.Elevation, &s.Calendar, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		stations = append(stations, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	return stations, nil
}
