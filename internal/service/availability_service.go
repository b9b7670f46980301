package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
	"github.com/khainghsuthwe/ReserveMyTable/internal/metrics"
	"github.com/khainghsuthwe/ReserveMyTable/internal/repository"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/logger"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AvailabilityService defines the interface for table availability logic
type AvailabilityService interface {
	// GetSlot returns one slot with derived aggregates
	GetSlot(ctx context.Context, key domain.SlotKey) (*domain.TimeSlot, error)

	// ListDay returns the slots of a restaurant on a date, ordered by time
	ListDay(ctx context.Context, restaurantID, date string) ([]*domain.TimeSlot, error)

	// Adjust applies a signed delta to the available tables of one type
	Adjust(ctx context.Context, key domain.SlotKey, tableType string, delta int) (*domain.TimeSlot, error)

	// Resize adds or removes tables of one type; owners only
	Resize(ctx context.Context, owner *domain.Principal, key domain.SlotKey, tableType string, delta int) (*domain.TimeSlot, error)

	// Seed creates the given slots, leaving existing counters untouched.
	// New slots start with confirmed reservations already subtracted.
	Seed(ctx context.Context, slots []*domain.TimeSlot) (created int, err error)

	// ReconcileSlot rederives available from confirmed reservations and
	// returns how many table types were corrected. A drift is repaired only
	// when the same drift was seen by the previous call for that counter,
	// so a reserve between its adjust and its insert is not mistaken for one.
	ReconcileSlot(ctx context.Context, key domain.SlotKey) (repaired int, err error)
}

// AvailabilityServiceConfig contains configuration for availability service
type AvailabilityServiceConfig struct {
	// SeedConcurrency bounds parallel Seed calls
	SeedConcurrency int
}

type drift struct {
	available int
	confirmed int
}

type availabilityService struct {
	mu       sync.Mutex
	suspects map[string]drift // slot/type -> drift seen on the previous pass

	store           repository.AvailabilityRepository
	reservations    repository.ReservationRepository
	catalog         CatalogService
	eventPublisher  EventPublisher
	seedConcurrency int
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(
	store repository.AvailabilityRepository,
	reservations repository.ReservationRepository,
	catalog CatalogService,
	eventPublisher EventPublisher,
	cfg *AvailabilityServiceConfig,
) AvailabilityService {
	concurrency := 8
	if cfg != nil && cfg.SeedConcurrency > 0 {
		concurrency = cfg.SeedConcurrency
	}
	if eventPublisher == nil {
		eventPublisher = NewNoOpEventPublisher()
	}
	return &availabilityService{
		suspects:        make(map[string]drift),
		store:           store,
		reservations:    reservations,
		catalog:         catalog,
		eventPublisher:  eventPublisher,
		seedConcurrency: concurrency,
	}
}

func (s *availabilityService) GetSlot(ctx context.Context, key domain.SlotKey) (*domain.TimeSlot, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return s.store.GetSlot(ctx, key)
}

func (s *availabilityService) ListDay(ctx context.Context, restaurantID, date string) ([]*domain.TimeSlot, error) {
	if _, err := s.catalog.Get(ctx, restaurantID); err != nil {
		return nil, err
	}
	if err := domain.ValidateDate(date); err != nil {
		return nil, err
	}
	return s.store.ListDay(ctx, restaurantID, date)
}

func (s *availabilityService) Adjust(ctx context.Context, key domain.SlotKey, tableType string, delta int) (*domain.TimeSlot, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.availability.adjust")
	defer span.End()

	if err := validateMutation(key, tableType, delta); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("slot", key.String()),
		attribute.String("table_type", tableType),
		attribute.Int("delta", delta),
	)

	slot, err := s.store.Adjust(ctx, key, tableType, delta)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return slot, nil
}

func (s *availabilityService) Resize(ctx context.Context, owner *domain.Principal, key domain.SlotKey, tableType string, delta int) (*domain.TimeSlot, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.availability.resize")
	defer span.End()

	if owner == nil {
		span.SetStatus(codes.Error, "unauthenticated")
		return nil, domain.ErrUnauthenticated
	}
	if !owner.IsOwner() {
		span.SetStatus(codes.Error, "forbidden")
		return nil, domain.ErrForbidden
	}
	if err := validateMutation(key, tableType, delta); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("owner_id", owner.ID),
		attribute.String("slot", key.String()),
		attribute.String("table_type", tableType),
		attribute.Int("delta", delta),
	)

	slot, err := s.store.Resize(ctx, key, tableType, delta)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordResize(ctx, key.RestaurantID, tableType, delta)

	tc, _ := slot.Table(tableType)
	change := &CapacityChange{Key: key, TableType: tableType, Delta: delta, OwnerID: owner.ID, Table: tc}
	if err := s.eventPublisher.PublishCapacityResized(context.WithoutCancel(ctx), change); err != nil {
		logger.Get().Ctx(ctx).Warn("Failed to publish capacity change", zap.Error(err), zap.String("slot", key.String()))
	}

	span.SetStatus(codes.Ok, "")
	return slot, nil
}

func (s *availabilityService) Seed(ctx context.Context, slots []*domain.TimeSlot) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.availability.seed")
	defer span.End()
	span.SetAttributes(attribute.Int("slots", len(slots)))

	for _, slot := range slots {
		if err := slot.SlotKey.Validate(); err != nil {
			telemetry.RecordError(span, err)
			return 0, err
		}
	}

	created := make([]bool, len(slots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.seedConcurrency)
	for i, slot := range slots {
		g.Go(func() error {
			ok, err := s.seedSlot(gctx, slot)
			created[i] = ok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}

	n := 0
	for _, ok := range created {
		if ok {
			n++
		}
	}
	span.SetAttributes(attribute.Int("created", n))
	span.SetStatus(codes.Ok, "")
	return n, nil
}

// seedSlot creates a missing slot with the tables already held in the
// reservation ledger taken out, so a store that lost its counters never
// reopens booked tables. Existing slots only gain missing table types.
func (s *availabilityService) seedSlot(ctx context.Context, slot *domain.TimeSlot) (bool, error) {
	_, err := s.store.GetSlot(ctx, slot.SlotKey)
	if err == nil {
		return s.store.Seed(ctx, slot)
	}
	if !errors.Is(err, domain.ErrSlotNotFound) {
		return false, err
	}

	counts, err := s.reservations.CountConfirmed(ctx, slot.SlotKey)
	if err != nil {
		return false, fmt.Errorf("count confirmed reservations of %s: %w", slot.SlotKey, err)
	}
	if len(counts) == 0 {
		return s.store.Seed(ctx, slot)
	}

	held := slot.Clone()
	for i, tc := range held.Tables {
		available := tc.Capacity - counts[tc.Type]
		if available < 0 {
			logger.Get().Ctx(ctx).Warn("Confirmed reservations exceed capacity",
				zap.String("slot", slot.SlotKey.String()),
				zap.String("table_type", tc.Type),
				zap.Int("capacity", tc.Capacity),
				zap.Int("confirmed", counts[tc.Type]),
			)
			available = 0
		}
		held.Tables[i].Available = available
	}
	return s.store.Seed(ctx, held)
}

func (s *availabilityService) ReconcileSlot(ctx context.Context, key domain.SlotKey) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.availability.reconcile_slot")
	defer span.End()
	span.SetAttributes(attribute.String("slot", key.String()))

	slot, err := s.store.GetSlot(ctx, key)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}
	counts, err := s.reservations.CountConfirmed(ctx, key)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}

	repaired := 0
	for _, tc := range slot.Tables {
		reserved := counts[tc.Type]
		if !s.confirmDrift(key.String()+"/"+tc.Type, tc, reserved) {
			continue
		}
		if _, err := s.store.Reconcile(ctx, key, tc.Type, tc.Available, reserved); err != nil {
			if errors.Is(err, domain.ErrCounterChanged) {
				continue
			}
			if errors.Is(err, domain.ErrCapacity) {
				// more confirmed reservations than tables, left for an owner to resolve
				logger.Get().Ctx(ctx).Warn("Confirmed reservations exceed capacity",
					zap.String("slot", key.String()),
					zap.String("table_type", tc.Type),
					zap.Int("capacity", tc.Capacity),
					zap.Int("confirmed", reserved),
				)
				continue
			}
			telemetry.RecordError(span, err)
			return repaired, err
		}
		logger.Get().Ctx(ctx).Info("Availability counter repaired",
			zap.String("slot", key.String()),
			zap.String("table_type", tc.Type),
			zap.Int("was_reserved", tc.Reserved()),
			zap.Int("confirmed", reserved),
		)
		repaired++
	}

	span.SetAttributes(attribute.Int("repaired", repaired))
	span.SetStatus(codes.Ok, "")
	return repaired, nil
}

// confirmDrift records the drift of one counter and reports whether the
// identical drift was already recorded by the previous pass
func (s *availabilityService) confirmDrift(id string, tc domain.TableCount, confirmed int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tc.Reserved() == confirmed {
		delete(s.suspects, id)
		return false
	}
	current := drift{available: tc.Available, confirmed: confirmed}
	prev, seen := s.suspects[id]
	if seen && prev == current {
		delete(s.suspects, id)
		return true
	}
	s.suspects[id] = current
	return false
}

func validateMutation(key domain.SlotKey, tableType string, delta int) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(tableType) == "" {
		return domain.ErrInvalidTableType
	}
	if delta == 0 {
		return domain.ErrInvalidDelta
	}
	return nil
}
