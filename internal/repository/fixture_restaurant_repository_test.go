package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFixture = `{
  "seed_days": 2,
  "restaurants": [
    {
      "id": "trattoria-sole",
      "name": "Trattoria Sole",
      "table_types": [{"type": "2-person", "description": "Garden", "seats": 2}],
      "schedule": [{"slot_id": "late-2030", "time": "20:30", "tables": {"2-person": 5}}]
    },
    {
      "id": "golden-lotus",
      "name": "Golden Lotus",
      "table_types": [{"type": "family", "description": "Round", "seats": 10}],
      "schedule": [{"slot_id": "lunch-1200", "time": "12:00", "tables": {"family": 1}}]
    }
  ]
}`

func TestParseFixture(t *testing.T) {
	fx, err := ParseFixture(strings.NewReader(testFixture))
	require.NoError(t, err)
	assert.Equal(t, 2, fx.SeedDays)

	repo := NewFixtureRestaurantRepository(fx)
	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "golden-lotus", list[0].ID)

	r, err := repo.GetByID(context.Background(), "trattoria-sole")
	require.NoError(t, err)
	tt, ok := r.TableType("2-person")
	require.True(t, ok)
	assert.Equal(t, 2, tt.Seats)

	_, err = repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrRestaurantNotFound)
}

func TestFixture_Slots(t *testing.T) {
	fx, err := ParseFixture(strings.NewReader(testFixture))
	require.NoError(t, err)

	slots := fx.Slots(time.Date(2025, 12, 31, 10, 0, 0, 0, time.UTC))
	require.Len(t, slots, 4)

	dates := map[string]bool{}
	for _, s := range slots {
		dates[s.Date] = true
		assert.NoError(t, s.SlotKey.Validate())
		for _, tc := range s.Tables {
			assert.Equal(t, tc.Capacity, tc.Available)
		}
	}
	assert.Equal(t, map[string]bool{"2025-12-31": true, "2026-01-01": true}, dates)
}

func TestParseFixture_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		fixture string
		wantErr error
	}{
		{
			name:    "undeclared table type",
			fixture: `{"restaurants":[{"id":"a","table_types":[],"schedule":[{"slot_id":"s","time":"12:00","tables":{"2-person":1}}]}]}`,
			wantErr: domain.ErrTableTypeNotFound,
		},
		{
			name:    "bad time",
			fixture: `{"restaurants":[{"id":"a","schedule":[{"slot_id":"s","time":"noon"}]}]}`,
			wantErr: domain.ErrInvalidTime,
		},
		{
			name:    "missing id",
			fixture: `{"restaurants":[{"name":"x"}]}`,
			wantErr: domain.ErrInvalidRestaurantID,
		},
		{
			name:    "negative capacity",
			fixture: `{"restaurants":[{"id":"a","table_types":[{"type":"t"}],"schedule":[{"slot_id":"s","time":"12:00","tables":{"t":-1}}]}]}`,
			wantErr: domain.ErrInvalidCapacity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixture(strings.NewReader(tt.fixture))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadFixture_BundledData(t *testing.T) {
	fx, err := LoadFixture("../../data/restaurants.json")
	require.NoError(t, err)
	assert.NotEmpty(t, fx.Restaurants)
}
