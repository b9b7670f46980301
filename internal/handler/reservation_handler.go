package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/khainghsuthwe/ReserveMyTable/internal/auth"
	"github.com/khainghsuthwe/ReserveMyTable/internal/dto"
	"github.com/khainghsuthwe/ReserveMyTable/internal/service"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/response"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ReservationHandler handles reservation HTTP requests
type ReservationHandler struct {
	reservations service.ReservationService
}

// NewReservationHandler creates a new ReservationHandler
func NewReservationHandler(reservations service.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservations: reservations}
}

// Reserve handles POST /reservations
func (h *ReservationHandler) Reserve(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.reservation.reserve")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	span.SetAttributes(
		attribute.String("slot", req.Key().String()),
		attribute.String("table_type", req.TableType),
	)

	reservation, err := h.reservations.Reserve(ctx, auth.Principal(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, dto.FromReservation(reservation))
}

// ListMine handles GET /reservations
func (h *ReservationHandler) ListMine(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.reservation.list_mine")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	reservations, err := h.reservations.ListByUser(ctx, auth.Principal(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.List(c, dto.FromReservations(reservations), len(reservations))
}

// Get handles GET /reservations/:id
func (h *ReservationHandler) Get(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.reservation.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	reservation, err := h.reservations.Get(ctx, auth.Principal(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.FromReservation(reservation))
}

// Cancel handles POST /reservations/:id/cancel
func (h *ReservationHandler) Cancel(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.reservation.cancel")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	reservationID := c.Param("id")
	span.SetAttributes(attribute.String("reservation_id", reservationID))

	reservation, err := h.reservations.Cancel(ctx, auth.Principal(c), reservationID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.FromReservation(reservation))
}

// ListBySlot handles GET /restaurants/:id/availability/:date/slots/:slot/reservations
func (h *ReservationHandler) ListBySlot(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.reservation.list_slot")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	reservations, err := h.reservations.ListBySlot(ctx, auth.Principal(c), slotKey(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.List(c, dto.FromReservations(reservations), len(reservations))
}
