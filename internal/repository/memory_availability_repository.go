package repository

import (
	"context"
	"sync"

	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
)

// tableCounter is the unit of serialization: one table type in one slot
type tableCounter struct {
	mu        sync.Mutex
	capacity  int
	available int
}

type memorySlot struct {
	key    domain.SlotKey
	time   string
	tables map[string]*tableCounter // guarded by MemoryAvailabilityRepository.mu
}

// MemoryAvailabilityRepository keeps counters in process.
// The slot map is guarded by an RWMutex held only for lookups and seeding;
// counter updates take the per table type mutex alone.
type MemoryAvailabilityRepository struct {
	mu    sync.RWMutex
	slots map[domain.SlotKey]*memorySlot
	days  map[string][]domain.SlotKey // restaurantID|date -> slot keys
}

// NewMemoryAvailabilityRepository creates an empty store
func NewMemoryAvailabilityRepository() *MemoryAvailabilityRepository {
	return &MemoryAvailabilityRepository{
		slots: make(map[domain.SlotKey]*memorySlot),
		days:  make(map[string][]domain.SlotKey),
	}
}

func dayKey(restaurantID, date string) string {
	return restaurantID + "|" + date
}

// GetSlot returns a snapshot of one slot
func (r *MemoryAvailabilityRepository) GetSlot(ctx context.Context, key domain.SlotKey) (*domain.TimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.slots[key]
	if !ok {
		return nil, domain.ErrSlotNotFound
	}
	return s.snapshot(), nil
}

// ListDay returns every slot of a restaurant on a date
func (r *MemoryAvailabilityRepository) ListDay(ctx context.Context, restaurantID, date string) ([]*domain.TimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := r.days[dayKey(restaurantID, date)]
	out := make([]*domain.TimeSlot, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.slots[k].snapshot())
	}
	domain.SortSlots(out)
	return out, nil
}

// ListKeys returns every known slot key
func (r *MemoryAvailabilityRepository) ListKeys(ctx context.Context) ([]domain.SlotKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]domain.SlotKey, 0, len(r.slots))
	for k := range r.slots {
		keys = append(keys, k)
	}
	return keys, nil
}

// Adjust applies delta to available under the counter lock
func (r *MemoryAvailabilityRepository) Adjust(ctx context.Context, key domain.SlotKey, tableType string, delta int) (*domain.TimeSlot, error) {
	return r.mutate(ctx, key, tableType, func(c *tableCounter) error {
		next := c.available + delta
		if next < 0 || next > c.capacity {
			return domain.ErrCapacity
		}
		c.available = next
		return nil
	})
}

// Resize moves capacity and available together so reserved is unchanged
func (r *MemoryAvailabilityRepository) Resize(ctx context.Context, key domain.SlotKey, tableType string, delta int) (*domain.TimeSlot, error) {
	return r.mutate(ctx, key, tableType, func(c *tableCounter) error {
		if c.available+delta < 0 {
			return domain.ErrCapacity
		}
		c.capacity += delta
		c.available += delta
		return nil
	})
}

// Reconcile rederives available from an authoritative reserved count
func (r *MemoryAvailabilityRepository) Reconcile(ctx context.Context, key domain.SlotKey, tableType string, expectedAvailable, reserved int) (*domain.TimeSlot, error) {
	return r.mutate(ctx, key, tableType, func(c *tableCounter) error {
		if c.available != expectedAvailable {
			return domain.ErrCounterChanged
		}
		if reserved < 0 || reserved > c.capacity {
			return domain.ErrCapacity
		}
		c.available = c.capacity - reserved
		return nil
	})
}

// Seed creates the slot or adds table types it lacks
func (r *MemoryAvailabilityRepository) Seed(ctx context.Context, slot *domain.TimeSlot) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.slots[slot.SlotKey]
	if !exists {
		s = &memorySlot{key: slot.SlotKey, time: slot.Time, tables: make(map[string]*tableCounter)}
		r.slots[slot.SlotKey] = s
		dk := dayKey(slot.RestaurantID, slot.Date)
		r.days[dk] = append(r.days[dk], slot.SlotKey)
	}
	for _, tc := range slot.Tables {
		if _, ok := s.tables[tc.Type]; ok {
			continue
		}
		s.tables[tc.Type] = &tableCounter{capacity: tc.Capacity, available: seedAvailable(tc)}
	}
	return !exists, nil
}

// mutate runs fn on one counter while holding only that counter's lock.
// Cancellation is honoured before the lock is taken, never after.
func (r *MemoryAvailabilityRepository) mutate(ctx context.Context, key domain.SlotKey, tableType string, fn func(c *tableCounter) error) (*domain.TimeSlot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	s, ok := r.slots[key]
	var c *tableCounter
	if ok {
		c = s.tables[tableType]
	}
	r.mu.RUnlock()

	if !ok {
		return nil, domain.ErrSlotNotFound
	}
	if c == nil {
		return nil, domain.ErrTableTypeNotFound
	}

	c.mu.Lock()
	err := fn(c)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return s.snapshot(), nil
}

// snapshot copies the counters; callers hold at least the read lock
func (s *memorySlot) snapshot() *domain.TimeSlot {
	ts := &domain.TimeSlot{
		SlotKey: s.key,
		Time:    s.time,
		Tables:  make([]domain.TableCount, 0, len(s.tables)),
	}
	for typ, c := range s.tables {
		c.mu.Lock()
		ts.Tables = append(ts.Tables, domain.TableCount{Type: typ, Capacity: c.capacity, Available: c.available})
		c.mu.Unlock()
	}
	ts.SortTables()
	return ts
}

var _ AvailabilityRepository = (*MemoryAvailabilityRepository)(nil)

// seedAvailable is the starting available count of a seeded table type
func seedAvailable(tc domain.TableCount) int {
	return max(0, min(tc.Available, tc.Capacity))
}
