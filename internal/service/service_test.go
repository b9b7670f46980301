package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
	"github.com/khainghsuthwe/ReserveMyTable/internal/dto"
	"github.com/khainghsuthwe/ReserveMyTable/internal/repository"
	"github.com/stretchr/testify/require"
)

const testCatalog = `{
  "seed_days": 1,
  "restaurants": [
    {
      "id": "golden-lotus",
      "name": "Golden Lotus",
      "table_types": [
        {"type": "2-person", "description": "Window table", "seats": 2},
        {"type": "family", "description": "Round table", "seats": 10}
      ],
      "schedule": [{"slot_id": "dinner-1800", "time": "18:00", "tables": {"2-person": 2, "family": 1}}]
    },
    {
      "id": "sakura-tei",
      "name": "Sakura Tei",
      "table_types": [{"type": "counter", "description": "Counter seat", "seats": 1}],
      "schedule": [{"slot_id": "lunch-1200", "time": "12:00", "tables": {"counter": 4}}]
    },
    {
      "id": "trattoria-sole",
      "name": "Trattoria Sole",
      "table_types": [{"type": "2-person", "description": "Garden", "seats": 2}],
      "schedule": []
    }
  ]
}`

var (
	testDay  = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	testKey  = domain.SlotKey{RestaurantID: "golden-lotus", Date: "2025-03-14", SlotID: "dinner-1800"}
	customer = &domain.Principal{ID: "user-1", Name: "Aye", Email: "aye@example.com", Role: domain.RoleCustomer}
	stranger = &domain.Principal{ID: "user-2", Name: "Min", Email: "min@example.com", Role: domain.RoleCustomer}
	owner    = &domain.Principal{ID: "owner-1", Name: "Owner", Email: "owner@example.com", Role: domain.RoleOwner}
)

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []domain.EventType
	Err    error
}

func (m *MockEventPublisher) record(t domain.EventType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, t)
	return m.Err
}

func (m *MockEventPublisher) PublishReservationConfirmed(ctx context.Context, r *domain.Reservation) error {
	return m.record(domain.EventReservationConfirmed)
}

func (m *MockEventPublisher) PublishReservationCancelled(ctx context.Context, r *domain.Reservation) error {
	return m.record(domain.EventReservationCancelled)
}

func (m *MockEventPublisher) PublishReviewAdded(ctx context.Context, r *domain.Review) error {
	return m.record(domain.EventReviewAdded)
}

func (m *MockEventPublisher) PublishCapacityResized(ctx context.Context, change *CapacityChange) error {
	return m.record(domain.EventCapacityResized)
}

func (m *MockEventPublisher) Close() error { return nil }

// MockReservationRepository wraps the memory repository and lets tests override calls
type MockReservationRepository struct {
	*repository.MemoryReservationRepository
	CreateFunc         func(ctx context.Context, r *domain.Reservation) error
	CountConfirmedFunc func(ctx context.Context, key domain.SlotKey) (map[string]int, error)
}

func (m *MockReservationRepository) Create(ctx context.Context, r *domain.Reservation) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, r)
	}
	return m.MemoryReservationRepository.Create(ctx, r)
}

func (m *MockReservationRepository) CountConfirmed(ctx context.Context, key domain.SlotKey) (map[string]int, error) {
	if m.CountConfirmedFunc != nil {
		return m.CountConfirmedFunc(ctx, key)
	}
	return m.MemoryReservationRepository.CountConfirmed(ctx, key)
}

type testEnv struct {
	store        *repository.MemoryAvailabilityRepository
	reservations *MockReservationRepository
	reviews      *repository.MemoryReviewRepository
	events       *MockEventPublisher
	catalog      CatalogService
	availability AvailabilityService
	reservation  ReservationService
	review       ReviewService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fx, err := repository.ParseFixture(strings.NewReader(testCatalog))
	require.NoError(t, err)

	env := &testEnv{
		store:        repository.NewMemoryAvailabilityRepository(),
		reservations: &MockReservationRepository{MemoryReservationRepository: repository.NewMemoryReservationRepository()},
		reviews:      repository.NewMemoryReviewRepository(),
		events:       &MockEventPublisher{},
	}
	env.catalog = NewCatalogService(repository.NewFixtureRestaurantRepository(fx))
	env.availability = NewAvailabilityService(env.store, env.reservations, env.catalog, env.events, nil)
	env.reservation = NewReservationService(env.reservations, env.store, env.catalog, env.events)
	env.review = NewReviewService(env.reviews, env.catalog, env.events)

	_, err = env.availability.Seed(context.Background(), fx.Slots(testDay))
	require.NoError(t, err)
	return env
}

func (e *testEnv) table(t *testing.T, key domain.SlotKey, tableType string) domain.TableCount {
	t.Helper()
	slot, err := e.store.GetSlot(context.Background(), key)
	require.NoError(t, err)
	tc, ok := slot.Table(tableType)
	require.True(t, ok)
	return tc
}

func reserveRequest(tableType string, partySize int) *dto.ReserveRequest {
	return &dto.ReserveRequest{
		RestaurantID: testKey.RestaurantID,
		Date:         testKey.Date,
		SlotID:       testKey.SlotID,
		TableType:    tableType,
		PartySize:    partySize,
		ContactEmail: "guest@example.com",
	}
}

var errDatabaseDown = errors.New("database down")
