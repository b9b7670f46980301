package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
	"github.com/khainghsuthwe/ReserveMyTable/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserve_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.reservation.Reserve(ctx, customer, reserveRequest("2-person", 2))
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, domain.ReservationStatusConfirmed, res.Status)
	assert.Equal(t, "18:00", res.Time)
	assert.Equal(t, customer.ID, res.UserID)
	assert.Equal(t, domain.TableCount{Type: "2-person", Capacity: 2, Available: 1}, env.table(t, testKey, "2-person"))
	assert.Equal(t, []domain.EventType{domain.EventReservationConfirmed}, env.events.Events)
}

func TestReserve_Guest(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.reservation.Reserve(context.Background(), nil, reserveRequest("family", 6))
	require.NoError(t, err)
	assert.Empty(t, res.UserID)

	got, err := env.reservation.Get(context.Background(), nil, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)
}

func TestReserve_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *dto.ReserveRequest)
		wantErr error
	}{
		{"zero party", func(r *dto.ReserveRequest) { r.PartySize = 0 }, domain.ErrInvalidPartySize},
		{"negative party", func(r *dto.ReserveRequest) { r.PartySize = -3 }, domain.ErrInvalidPartySize},
		{"bad email", func(r *dto.ReserveRequest) { r.ContactEmail = "not-an-email" }, domain.ErrInvalidEmail},
		{"empty email", func(r *dto.ReserveRequest) { r.ContactEmail = "" }, domain.ErrInvalidEmail},
		{"bad date", func(r *dto.ReserveRequest) { r.Date = "March 14" }, domain.ErrInvalidDate},
		{"empty table type", func(r *dto.ReserveRequest) { r.TableType = "" }, domain.ErrInvalidTableType},
		{"unknown restaurant", func(r *dto.ReserveRequest) { r.RestaurantID = "nope" }, domain.ErrRestaurantNotFound},
		{"unknown table type", func(r *dto.ReserveRequest) { r.TableType = "bar" }, domain.ErrTableTypeNotFound},
		{"unknown slot", func(r *dto.ReserveRequest) { r.SlotID = "brunch" }, domain.ErrSlotNotFound},
		{"unseeded date", func(r *dto.ReserveRequest) { r.Date = "2030-01-01" }, domain.ErrSlotNotFound},
		{"party too large", func(r *dto.ReserveRequest) { r.PartySize = 3 }, domain.ErrPartyTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			req := reserveRequest("2-person", 2)
			tt.mutate(req)

			_, err := env.reservation.Reserve(context.Background(), customer, req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 2, env.table(t, testKey, "2-person").Available)
			assert.Empty(t, env.events.Events)
		})
	}
}

func TestReserveCancel_Scenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.reservation.Reserve(ctx, customer, reserveRequest("2-person", 2))
	require.NoError(t, err)
	_, err = env.reservation.Reserve(ctx, customer, reserveRequest("2-person", 1))
	require.NoError(t, err)

	tc := env.table(t, testKey, "2-person")
	assert.Equal(t, 0, tc.Available)
	assert.Equal(t, 2, tc.Reserved())

	_, err = env.reservation.Reserve(ctx, customer, reserveRequest("2-person", 2))
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	assert.Equal(t, tc, env.table(t, testKey, "2-person"))

	cancelled, err := env.reservation.Cancel(ctx, customer, first.ID)
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled())

	tc = env.table(t, testKey, "2-person")
	assert.Equal(t, 1, tc.Available)
	assert.Equal(t, 1, tc.Reserved())

	// other table types are untouched
	assert.Equal(t, 1, env.table(t, testKey, "family").Available)
}

func TestCancel_Twice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.reservation.Reserve(ctx, customer, reserveRequest("2-person", 2))
	require.NoError(t, err)

	_, err = env.reservation.Cancel(ctx, customer, res.ID)
	require.NoError(t, err)
	_, err = env.reservation.Cancel(ctx, customer, res.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)

	assert.Equal(t, 2, env.table(t, testKey, "2-person").Available)
	assert.Equal(t, []domain.EventType{domain.EventReservationConfirmed, domain.EventReservationCancelled}, env.events.Events)
}

func TestCancel_Authorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mine, err := env.reservation.Reserve(ctx, customer, reserveRequest("2-person", 2))
	require.NoError(t, err)
	guest, err := env.reservation.Reserve(ctx, nil, reserveRequest("2-person", 2))
	require.NoError(t, err)

	_, err = env.reservation.Cancel(ctx, nil, mine.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = env.reservation.Cancel(ctx, stranger, mine.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = env.reservation.Cancel(ctx, customer, guest.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = env.reservation.Cancel(ctx, customer, "missing")
	assert.ErrorIs(t, err, domain.ErrReservationNotFound)

	_, err = env.reservation.Cancel(ctx, owner, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, env.table(t, testKey, "2-person").Available)
}

func TestReserve_ConcurrentLastTable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const callers = 16
	var (
		wg          sync.WaitGroup
		confirmed   atomic.Int32
		unavailable atomic.Int32
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.reservation.Reserve(ctx, nil, reserveRequest("family", 4))
			switch {
			case err == nil:
				confirmed.Add(1)
			case errors.Is(err, domain.ErrSlotUnavailable):
				unavailable.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), confirmed.Load())
	assert.Equal(t, int32(callers-1), unavailable.Load())

	list, err := env.reservation.ListBySlot(ctx, owner, testKey)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCancel_ConcurrentRestoresOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.reservation.Reserve(ctx, customer, reserveRequest("2-person", 2))
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.reservation.Cancel(ctx, customer, res.ID); err == nil {
				winners.Add(1)
			} else {
				assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	tc := env.table(t, testKey, "2-person")
	assert.Equal(t, 2, tc.Available)
	assert.Equal(t, 0, tc.Reserved())
}

func TestReserve_PersistFailureGivesTableBack(t *testing.T) {
	env := newTestEnv(t)
	env.reservations.CreateFunc = func(ctx context.Context, r *domain.Reservation) error {
		return errDatabaseDown
	}

	_, err := env.reservation.Reserve(context.Background(), customer, reserveRequest("2-person", 2))
	assert.ErrorIs(t, err, errDatabaseDown)
	assert.Equal(t, 2, env.table(t, testKey, "2-person").Available)
	assert.Empty(t, env.events.Events)
}

func TestReserve_PublishFailureDoesNotFail(t *testing.T) {
	env := newTestEnv(t)
	env.events.Err = errors.New("broker unavailable")

	res, err := env.reservation.Reserve(context.Background(), customer, reserveRequest("2-person", 2))
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusConfirmed, res.Status)
}

func TestReservation_Listings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.reservation.Reserve(ctx, customer, reserveRequest("2-person", 2))
	require.NoError(t, err)
	_, err = env.reservation.Reserve(ctx, stranger, reserveRequest("family", 5))
	require.NoError(t, err)

	mine, err := env.reservation.ListByUser(ctx, customer)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "2-person", mine[0].TableType)

	_, err = env.reservation.ListByUser(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = env.reservation.ListBySlot(ctx, customer, testKey)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	all, err := env.reservation.ListBySlot(ctx, owner, testKey)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = env.reservation.Get(ctx, stranger, mine[0].ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = env.reservation.Get(ctx, nil, mine[0].ID)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}
