package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
)

// MemoryReservationRepository keeps reservations in process
type MemoryReservationRepository struct {
	mu           sync.RWMutex
	reservations map[string]*domain.Reservation
}

// NewMemoryReservationRepository creates an empty repository
func NewMemoryReservationRepository() *MemoryReservationRepository {
	return &MemoryReservationRepository{reservations: make(map[string]*domain.Reservation)}
}

// Create stores a copy of r
func (m *MemoryReservationRepository) Create(ctx context.Context, r *domain.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *r
	m.reservations[r.ID] = &c
	return nil
}

// GetByID returns a copy of the reservation
func (m *MemoryReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reservations[id]
	if !ok {
		return nil, domain.ErrReservationNotFound
	}
	c := *r
	return &c, nil
}

// Cancel flips confirmed to cancelled under the write lock
func (m *MemoryReservationRepository) Cancel(ctx context.Context, id string, at time.Time) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reservations[id]
	if !ok {
		return nil, domain.ErrReservationNotFound
	}
	if err := r.Cancel(at); err != nil {
		return nil, err
	}
	c := *r
	return &c, nil
}

// ListByUser returns the user's reservations, newest first
func (m *MemoryReservationRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Reservation, error) {
	return m.filter(func(r *domain.Reservation) bool { return r.UserID == userID }), nil
}

// ListBySlot returns the slot's reservations, newest first
func (m *MemoryReservationRepository) ListBySlot(ctx context.Context, key domain.SlotKey) ([]*domain.Reservation, error) {
	return m.filter(func(r *domain.Reservation) bool { return r.Key() == key }), nil
}

// CountConfirmed counts confirmed reservations of a slot per table type
func (m *MemoryReservationRepository) CountConfirmed(ctx context.Context, key domain.SlotKey) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	for _, r := range m.reservations {
		if r.Key() == key && !r.IsCancelled() {
			counts[r.TableType]++
		}
	}
	return counts, nil
}

func (m *MemoryReservationRepository) filter(keep func(*domain.Reservation) bool) []*domain.Reservation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Reservation, 0)
	for _, r := range m.reservations {
		if keep(r) {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

var _ ReservationRepository = (*MemoryReservationRepository)(nil)
