package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
	"github.com/khainghsuthwe/ReserveMyTable/internal/dto"
	"github.com/khainghsuthwe/ReserveMyTable/internal/metrics"
	"github.com/khainghsuthwe/ReserveMyTable/internal/repository"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/logger"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var validate = validator.New()

// ReservationService defines the interface for reservation business logic
type ReservationService interface {
	// Reserve takes one table of the requested type and records a confirmed reservation.
	// principal may be nil for guest reservations.
	Reserve(ctx context.Context, principal *domain.Principal, req *dto.ReserveRequest) (*domain.Reservation, error)

	// Cancel cancels a confirmed reservation and gives its table back exactly once
	Cancel(ctx context.Context, principal *domain.Principal, reservationID string) (*domain.Reservation, error)

	// Get retrieves a reservation by ID
	Get(ctx context.Context, principal *domain.Principal, reservationID string) (*domain.Reservation, error)

	// ListByUser retrieves the principal's reservations, newest first
	ListByUser(ctx context.Context, principal *domain.Principal) ([]*domain.Reservation, error)

	// ListBySlot retrieves every reservation of a slot; owners only
	ListBySlot(ctx context.Context, principal *domain.Principal, key domain.SlotKey) ([]*domain.Reservation, error)
}

type reservationService struct {
	reservations   repository.ReservationRepository
	store          repository.AvailabilityRepository
	catalog        CatalogService
	eventPublisher EventPublisher
	now            func() time.Time
}

// NewReservationService creates a new reservation service
func NewReservationService(
	reservations repository.ReservationRepository,
	store repository.AvailabilityRepository,
	catalog CatalogService,
	eventPublisher EventPublisher,
) ReservationService {
	if eventPublisher == nil {
		eventPublisher = NewNoOpEventPublisher()
	}
	return &reservationService{
		reservations:   reservations,
		store:          store,
		catalog:        catalog,
		eventPublisher: eventPublisher,
		now:            time.Now,
	}
}

func (s *reservationService) Reserve(ctx context.Context, principal *domain.Principal, req *dto.ReserveRequest) (*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.reserve")
	defer span.End()

	if req == nil {
		span.SetStatus(codes.Error, "invalid request")
		return nil, domain.ErrInvalidRestaurantID
	}
	key := req.Key()
	if err := validateReserve(req); err != nil {
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordRejected(ctx, req.RestaurantID, "invalid")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("slot", key.String()),
		attribute.String("table_type", req.TableType),
		attribute.Int("party_size", req.PartySize),
	)

	tt, err := s.catalog.TableType(ctx, req.RestaurantID, req.TableType)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordRejected(ctx, req.RestaurantID, "unknown")
		return nil, err
	}
	if !tt.Admits(req.PartySize) {
		span.SetStatus(codes.Error, "party too large")
		metrics.RecordRejected(ctx, req.RestaurantID, "party_too_large")
		return nil, domain.ErrPartyTooLarge
	}

	slot, err := s.store.Adjust(ctx, key, req.TableType, -1)
	if err != nil {
		if errors.Is(err, domain.ErrCapacity) {
			span.SetStatus(codes.Error, "slot unavailable")
			metrics.RecordRejected(ctx, req.RestaurantID, "slot_unavailable")
			return nil, domain.ErrSlotUnavailable
		}
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordRejected(ctx, req.RestaurantID, "store")
		return nil, err
	}

	reservation := &domain.Reservation{
		ID:           uuid.New().String(),
		RestaurantID: req.RestaurantID,
		Date:         req.Date,
		SlotID:       req.SlotID,
		Time:         slot.Time,
		TableType:    req.TableType,
		PartySize:    req.PartySize,
		ContactEmail: strings.TrimSpace(req.ContactEmail),
		Status:       domain.ReservationStatusConfirmed,
		CreatedAt:    s.now().UTC(),
	}
	if principal != nil {
		reservation.UserID = principal.ID
	}

	if err := s.reservations.Create(ctx, reservation); err != nil {
		telemetry.RecordError(span, err)
		s.giveBack(ctx, key, req.TableType, "reserve_compensation")
		metrics.RecordRejected(ctx, req.RestaurantID, "persist")
		return nil, err
	}

	if err := s.eventPublisher.PublishReservationConfirmed(context.WithoutCancel(ctx), reservation); err != nil {
		logger.Get().Ctx(ctx).Warn("Failed to publish reservation confirmed event",
			zap.Error(err), zap.String("reservation_id", reservation.ID))
	}
	metrics.RecordConfirmed(ctx, reservation.RestaurantID, reservation.TableType)

	span.AddEvent("reservation_confirmed", trace.WithAttributes(
		attribute.String("reservation_id", reservation.ID),
		attribute.Int("available_after", slot.Available()),
	))
	span.SetStatus(codes.Ok, "")
	return reservation, nil
}

func (s *reservationService) Cancel(ctx context.Context, principal *domain.Principal, reservationID string) (*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.reservation.cancel")
	defer span.End()

	span.SetAttributes(attribute.String("reservation_id", reservationID))

	existing, err := s.authorize(ctx, principal, reservationID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if existing.IsCancelled() {
		span.SetStatus(codes.Error, "already cancelled")
		return nil, domain.ErrAlreadyCancelled
	}

	// only the caller that wins the compare-and-set restores the table
	cancelled, err := s.reservations.Cancel(ctx, reservationID, s.now().UTC())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.giveBack(ctx, cancelled.Key(), cancelled.TableType, "cancel")

	if err := s.eventPublisher.PublishReservationCancelled(context.WithoutCancel(ctx), cancelled); err != nil {
		logger.Get().Ctx(ctx).Warn("Failed to publish reservation cancelled event",
			zap.Error(err), zap.String("reservation_id", cancelled.ID))
	}
	metrics.RecordCancelled(ctx, cancelled.RestaurantID, cancelled.TableType)

	span.SetStatus(codes.Ok, "")
	return cancelled, nil
}

func (s *reservationService) Get(ctx context.Context, principal *domain.Principal, reservationID string) (*domain.Reservation, error) {
	if strings.TrimSpace(reservationID) == "" {
		return nil, domain.ErrInvalidReservationID
	}
	r, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	// guest reservations are readable by id alone
	if r.UserID != "" && !r.OwnedBy(principal) {
		if principal == nil {
			return nil, domain.ErrUnauthenticated
		}
		return nil, domain.ErrForbidden
	}
	return r, nil
}

func (s *reservationService) ListByUser(ctx context.Context, principal *domain.Principal) ([]*domain.Reservation, error) {
	if principal == nil {
		return nil, domain.ErrUnauthenticated
	}
	return s.reservations.ListByUser(ctx, principal.ID)
}

func (s *reservationService) ListBySlot(ctx context.Context, principal *domain.Principal, key domain.SlotKey) ([]*domain.Reservation, error) {
	if principal == nil {
		return nil, domain.ErrUnauthenticated
	}
	if !principal.IsOwner() {
		return nil, domain.ErrForbidden
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return s.reservations.ListBySlot(ctx, key)
}

// authorize loads a reservation the principal may manage
func (s *reservationService) authorize(ctx context.Context, principal *domain.Principal, reservationID string) (*domain.Reservation, error) {
	if principal == nil {
		return nil, domain.ErrUnauthenticated
	}
	if strings.TrimSpace(reservationID) == "" {
		return nil, domain.ErrInvalidReservationID
	}
	r, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !r.OwnedBy(principal) {
		return nil, domain.ErrForbidden
	}
	return r, nil
}

// giveBack restores one table. Failures are logged for the reconcile worker to repair.
func (s *reservationService) giveBack(ctx context.Context, key domain.SlotKey, tableType, reason string) {
	if _, err := s.store.Adjust(context.WithoutCancel(ctx), key, tableType, 1); err != nil {
		logger.Get().Ctx(ctx).Error("Failed to restore table",
			zap.Error(err),
			zap.String("slot", key.String()),
			zap.String("table_type", tableType),
			zap.String("reason", reason),
		)
	}
}

func validateReserve(req *dto.ReserveRequest) error {
	if err := req.Key().Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(req.TableType) == "" {
		return domain.ErrInvalidTableType
	}
	if req.PartySize < 1 {
		return domain.ErrInvalidPartySize
	}
	if err := validate.Var(strings.TrimSpace(req.ContactEmail), "required,email"); err != nil {
		return domain.ErrInvalidEmail
	}
	return nil
}
