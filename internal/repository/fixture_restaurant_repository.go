package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
)

// DefaultSeedDays is how many days ahead availability is seeded when the fixture does not say
const DefaultSeedDays = 14

// Fixture is the on-disk catalog: restaurants plus their daily slot schedule
type Fixture struct {
	SeedDays    int                 `json:"seed_days"`
	Restaurants []FixtureRestaurant `json:"restaurants"`
}

// FixtureRestaurant is a restaurant with the slots it opens every day
type FixtureRestaurant struct {
	domain.Restaurant
	Schedule []ScheduledSlot `json:"schedule"`
}

// ScheduledSlot is a daily slot with table capacities keyed by table type
type ScheduledSlot struct {
	SlotID string         `json:"slot_id"`
	Time   string         `json:"time"`
	Tables map[string]int `json:"tables"`
}

// LoadFixture reads and validates a fixture file
func LoadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer f.Close()
	return ParseFixture(f)
}

// ParseFixture decodes and validates a fixture
func ParseFixture(r io.Reader) (*Fixture, error) {
	var fx Fixture
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}
	if fx.SeedDays <= 0 {
		fx.SeedDays = DefaultSeedDays
	}
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// Validate checks ids, times and that every scheduled table type is declared
func (fx *Fixture) Validate() error {
	seen := make(map[string]bool, len(fx.Restaurants))
	for _, r := range fx.Restaurants {
		if r.ID == "" {
			return fmt.Errorf("restaurant %q: %w", r.Name, domain.ErrInvalidRestaurantID)
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate restaurant %q", r.ID)
		}
		seen[r.ID] = true

		slots := make(map[string]bool, len(r.Schedule))
		for _, s := range r.Schedule {
			if s.SlotID == "" || slots[s.SlotID] {
				return fmt.Errorf("restaurant %q slot %q: %w", r.ID, s.SlotID, domain.ErrInvalidSlotID)
			}
			slots[s.SlotID] = true
			if err := domain.ValidateTime(s.Time); err != nil {
				return fmt.Errorf("restaurant %q slot %q: %w", r.ID, s.SlotID, err)
			}
			for t, n := range s.Tables {
				if _, ok := r.TableType(t); !ok {
					return fmt.Errorf("restaurant %q slot %q table %q: %w", r.ID, s.SlotID, t, domain.ErrTableTypeNotFound)
				}
				if n < 0 {
					return fmt.Errorf("restaurant %q slot %q table %q: %w", r.ID, s.SlotID, t, domain.ErrInvalidCapacity)
				}
			}
		}
	}
	return nil
}

// Slots expands the schedule into seedable slots for SeedDays days starting at from
func (fx *Fixture) Slots(from time.Time) []*domain.TimeSlot {
	var out []*domain.TimeSlot
	for d := 0; d < fx.SeedDays; d++ {
		date := from.AddDate(0, 0, d).Format(domain.DateLayout)
		for _, r := range fx.Restaurants {
			for _, s := range r.Schedule {
				out = append(out, s.slot(r.ID, date))
			}
		}
	}
	return out
}

func (s ScheduledSlot) slot(restaurantID, date string) *domain.TimeSlot {
	ts := &domain.TimeSlot{
		SlotKey: domain.SlotKey{RestaurantID: restaurantID, Date: date, SlotID: s.SlotID},
		Time:    s.Time,
		Tables:  make([]domain.TableCount, 0, len(s.Tables)),
	}
	for t, n := range s.Tables {
		ts.Tables = append(ts.Tables, domain.TableCount{Type: t, Capacity: n, Available: n})
	}
	ts.SortTables()
	return ts
}

// FixtureRestaurantRepository serves the read-only catalog
type FixtureRestaurantRepository struct {
	byID  map[string]*domain.Restaurant
	order []string
}

// NewFixtureRestaurantRepository indexes the fixture restaurants
func NewFixtureRestaurantRepository(fx *Fixture) *FixtureRestaurantRepository {
	repo := &FixtureRestaurantRepository{byID: make(map[string]*domain.Restaurant, len(fx.Restaurants))}
	for i := range fx.Restaurants {
		r := fx.Restaurants[i].Restaurant
		repo.byID[r.ID] = &r
		repo.order = append(repo.order, r.ID)
	}
	sort.Strings(repo.order)
	return repo
}

// List returns every restaurant ordered by id
func (f *FixtureRestaurantRepository) List(ctx context.Context) ([]*domain.Restaurant, error) {
	out := make([]*domain.Restaurant, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.byID[id])
	}
	return out, nil
}

// GetByID returns one restaurant
func (f *FixtureRestaurantRepository) GetByID(ctx context.Context, id string) (*domain.Restaurant, error) {
	r, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrRestaurantNotFound
	}
	return r, nil
}

var _ RestaurantRepository = (*FixtureRestaurantRepository)(nil)
