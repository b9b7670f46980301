package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReservation(key domain.SlotKey, tableType, userID string, createdAt time.Time) *domain.Reservation {
	return &domain.Reservation{
		ID:           uuid.New().String(),
		RestaurantID: key.RestaurantID,
		Date:         key.Date,
		SlotID:       key.SlotID,
		Time:         "18:00",
		TableType:    tableType,
		PartySize:    2,
		ContactEmail: "guest@example.com",
		UserID:       userID,
		Status:       domain.ReservationStatusConfirmed,
		CreatedAt:    createdAt,
	}
}

func TestMemoryReservation_CreateAndGet(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()

	res := newTestReservation(testKey, "2-person", "user-1", time.Now())
	require.NoError(t, repo.Create(ctx, res))

	got, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res, got)

	// stored copy is isolated from the caller
	got.Status = domain.ReservationStatusCancelled
	again, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusConfirmed, again.Status)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrReservationNotFound)
}

func TestMemoryReservation_Cancel(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()

	res := newTestReservation(testKey, "2-person", "", time.Now())
	require.NoError(t, repo.Create(ctx, res))

	at := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	cancelled, err := repo.Cancel(ctx, res.ID, at)
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled())
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, at, *cancelled.CancelledAt)

	_, err = repo.Cancel(ctx, res.ID, at)
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)

	_, err = repo.Cancel(ctx, "missing", at)
	assert.ErrorIs(t, err, domain.ErrReservationNotFound)
}

func TestMemoryReservation_ConcurrentCancelSingleWinner(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()

	res := newTestReservation(testKey, "2-person", "", time.Now())
	require.NoError(t, repo.Create(ctx, res))

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Cancel(ctx, res.ID, time.Now()); err == nil {
				winners.Add(1)
			} else {
				assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestMemoryReservation_Listings(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	otherKey := domain.SlotKey{RestaurantID: testKey.RestaurantID, Date: testKey.Date, SlotID: "lunch-1200"}

	first := newTestReservation(testKey, "2-person", "user-1", base)
	second := newTestReservation(testKey, "4-person", "user-2", base.Add(time.Minute))
	third := newTestReservation(otherKey, "2-person", "user-1", base.Add(2*time.Minute))
	fourth := newTestReservation(testKey, "2-person", "user-1", base.Add(3*time.Minute))
	for _, r := range []*domain.Reservation{first, second, third, fourth} {
		require.NoError(t, repo.Create(ctx, r))
	}
	_, err := repo.Cancel(ctx, fourth.ID, time.Now())
	require.NoError(t, err)

	mine, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 3)
	assert.Equal(t, fourth.ID, mine[0].ID)
	assert.Equal(t, third.ID, mine[1].ID)
	assert.Equal(t, first.ID, mine[2].ID)

	slot, err := repo.ListBySlot(ctx, testKey)
	require.NoError(t, err)
	assert.Len(t, slot, 3)

	counts, err := repo.CountConfirmed(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2-person": 1, "4-person": 1}, counts)

	none, err := repo.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
