package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStationRepository_Create(t *testing.T) {
	db := new(mockDBTX)
	repo := NewStationRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"),
		[]any{"st-1", "Reykjavik", 64.13, -21.9, 52.0, "gregorian"},
	).Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := repo.Create(context.Background(), &Station{
		ID: "st-1", Name: "Reykjavik", Latitude: 64.13, Longitude: -21.9,
		Elevation: 52.0, Calendar: "gregorian",
	})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestStationRepository_GetByID(t *testing.T) {
	db := new(mockDBTX)
	repo := NewStationRepository(db)

	created := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"st-1"}).
		Return(&mockRow{scanFn: func(dest ...any) error {
			*(dest[0].(*string)) = "st-1"
			*(dest[1].(*string)) = "Reykjavik"
			*(dest[2].(*float64)) = 64.13
			*(dest[3].(*float64)) = -21.9
			*(dest[4].(*float64)) = 52.0
			*(dest[5].(*string)) = "gregorian"
			*(dest[6].(*time.Time)) = created
			return nil
		}})

	s, err := repo.GetByID(context.Background(), "st-1")
	require.NoError(t, err)
	assert.Equal(t, "Reykjavik", s.Name)
	assert.Equal(t, "gregorian", s.Calendar)
	assert.Equal(t, created, s.CreatedAt)
}

func TestStationRepository_GetByID_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewStationRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"missing"}).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStationRepository_List(t *testing.T) {
	db := new(mockDBTX)
	repo := NewStationRepository(db)

	now := time.Now().UTC()
	rows := newMockRows([][]any{
		{"st-1", "Aberdeen", 57.15, -2.09, 20.0, "gregorian", now},
		{"st-2", "Brest", 48.39, -4.49, 35.0, "365_day", now},
	})
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(rows, nil)

	stations, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stations, 2)
	assert.Equal(t, "Aberdeen", stations[0].Name)
	assert.Equal(t, "365_day", stations[1].Calendar)
}
