package repository

import (
	"context"
	"time"

	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
)

// AvailabilityRepository owns the per slot, per table type counters.
// Every mutation is atomic per (slot, table type) and keeps
// 0 <= available <= capacity.
type AvailabilityRepository interface {
	// GetSlot returns a snapshot of one slot
	GetSlot(ctx context.Context, key domain.SlotKey) (*domain.TimeSlot, error)

	// ListDay returns every slot of a restaurant on a date, ordered by time
	ListDay(ctx context.Context, restaurantID, date string) ([]*domain.TimeSlot, error)

	// ListKeys returns the keys of every known slot
	ListKeys(ctx context.Context) ([]domain.SlotKey, error)

	// Adjust adds delta to the available count of one table type.
	// Returns domain.ErrCapacity when the result leaves [0, capacity].
	Adjust(ctx context.Context, key domain.SlotKey, tableType string, delta int) (*domain.TimeSlot, error)

	// Resize adds delta to both capacity and available of one table type.
	// Returns domain.ErrCapacity when available would go negative.
	Resize(ctx context.Context, key domain.SlotKey, tableType string, delta int) (*domain.TimeSlot, error)

	// Seed creates the slot and any missing table types with their capacity and
	// available count, available clamped to [0, capacity]. Existing counters are untouched.
	Seed(ctx context.Context, slot *domain.TimeSlot) (created bool, err error)

	// Reconcile sets available = capacity - reserved for one table type.
	// Returns domain.ErrCounterChanged when available no longer equals
	// expectedAvailable, so a concurrent adjust is never overwritten.
	Reconcile(ctx context.Context, key domain.SlotKey, tableType string, expectedAvailable, reserved int) (*domain.TimeSlot, error)
}

// ReservationRepository persists reservation records
type ReservationRepository interface {
	Create(ctx context.Context, r *domain.Reservation) error
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)

	// Cancel moves a confirmed reservation to cancelled. Exactly one of
	// several concurrent callers succeeds; the rest get domain.ErrAlreadyCancelled.
	Cancel(ctx context.Context, id string, at time.Time) (*domain.Reservation, error)

	ListByUser(ctx context.Context, userID string) ([]*domain.Reservation, error)
	ListBySlot(ctx context.Context, key domain.SlotKey) ([]*domain.Reservation, error)

	// CountConfirmed returns confirmed reservations of a slot keyed by table type
	CountConfirmed(ctx context.Context, key domain.SlotKey) (map[string]int, error)
}

// ReviewRepository is the append-only review ledger
type ReviewRepository interface {
	Add(ctx context.Context, r *domain.Review) error

	// ListByRestaurant returns reviews in insertion order
	ListByRestaurant(ctx context.Context, restaurantID string) ([]*domain.Review, error)

	Summary(ctx context.Context, restaurantID string) (*domain.RatingSummary, error)

	// Summaries returns a summary for every restaurant with at least one review
	Summaries(ctx context.Context) ([]*domain.RatingSummary, error)
}

// RestaurantRepository serves read-only restaurant reference data
type RestaurantRepository interface {
	List(ctx context.Context) ([]*domain.Restaurant, error)
	GetByID(ctx context.Context, id string) (*domain.Restaurant, error)
}
