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

// AvailabilityHandler serves table availability
type AvailabilityHandler struct {
	availability service.AvailabilityService
}

// NewAvailabilityHandler creates a new AvailabilityHandler
func NewAvailabilityHandler(availability service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// GetDay handles GET /restaurants/:id/availability/:date
func (h *AvailabilityHandler) GetDay(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.availability.day")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	restaurantID, date := c.Param("id"), c.Param("date")
	span.SetAttributes(
		attribute.String("restaurant_id", restaurantID),
		attribute.String("date", date),
	)

	slots, err := h.availability.ListDay(ctx, restaurantID, date)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.FromDay(restaurantID, date, slots))
}

// GetSlot handles GET /restaurants/:id/availability/:date/slots/:slot
func (h *AvailabilityHandler) GetSlot(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.availability.slot")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	slot, err := h.availability.GetSlot(ctx, slotKey(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.FromSlot(slot))
}

// Resize handles PATCH /restaurants/:id/availability/:date/slots/:slot/tables/:type
func (h *AvailabilityHandler) Resize(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.availability.resize")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	slot, err := h.availability.Resize(ctx, auth.Principal(c), slotKey(c), c.Param("type"), req.Delta)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.FromSlot(slot))
}
