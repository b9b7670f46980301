package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/logger"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/response"
	"go.uber.org/zap"
)

// handleError maps service errors to HTTP responses
func handleError(c *gin.Context, err error) {
	switch {
	case domain.IsValidationError(err):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case domain.IsNotFoundError(err):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrSlotUnavailable):
		response.Error(c, http.StatusConflict, "SLOT_UNAVAILABLE", err.Error())
	case errors.Is(err, domain.ErrCapacity):
		response.Error(c, http.StatusConflict, "CAPACITY_ERROR", err.Error())
	case errors.Is(err, domain.ErrAlreadyCancelled):
		response.Error(c, http.StatusConflict, "ALREADY_CANCELLED", err.Error())
	case errors.Is(err, domain.ErrCounterChanged):
		response.Error(c, http.StatusConflict, "COUNTER_CHANGED", err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		response.Forbidden(c, err.Error())
	default:
		logger.Get().Ctx(c.Request.Context()).Error("Request failed",
			zap.Error(err),
			zap.String("path", c.FullPath()),
		)
		response.InternalError(c)
	}
}

// slotKey reads the slot key from the route params
func slotKey(c *gin.Context) domain.SlotKey {
	return domain.SlotKey{
		RestaurantID: c.Param("id"),
		Date:         c.Param("date"),
		SlotID:       c.Param("slot"),
	}
}

// invalidRequest rejects a body that failed to bind
func invalidRequest(c *gin.Context, err error) {
	response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
}
