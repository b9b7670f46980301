package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/khainghsuthwe/ReserveMyTable/internal/auth"
	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
)

// Handlers groups the API handlers
type Handlers struct {
	Health       *HealthHandler
	Restaurant   *RestaurantHandler
	Availability *AvailabilityHandler
	Reservation  *ReservationHandler
	Review       *ReviewHandler
}

// RegisterRoutes mounts the API under v1.
// reserveMiddleware runs in front of reservation writes only.
func RegisterRoutes(v1 *gin.RouterGroup, h *Handlers, reserveMiddleware ...gin.HandlerFunc) {
	restaurants := v1.Group("/restaurants")
	{
		restaurants.GET("", h.Restaurant.List)
		restaurants.GET("/popular", h.Restaurant.Popular)
		restaurants.GET("/:id", h.Restaurant.Get)

		restaurants.GET("/:id/availability/:date", h.Availability.GetDay)
		restaurants.GET("/:id/availability/:date/slots/:slot", h.Availability.GetSlot)

		owner := restaurants.Group("", auth.RequireRole(domain.RoleOwner))
		owner.PATCH("/:id/availability/:date/slots/:slot/tables/:type", h.Availability.Resize)
		owner.GET("/:id/availability/:date/slots/:slot/reservations", h.Reservation.ListBySlot)

		restaurants.GET("/:id/reviews", h.Review.List)
		restaurants.POST("/:id/reviews", auth.RequireAuth(), h.Review.Add)
	}

	reservations := v1.Group("/reservations")
	{
		reservations.POST("", chain(reserveMiddleware, h.Reservation.Reserve)...)
		reservations.GET("", auth.RequireAuth(), h.Reservation.ListMine)
		reservations.GET("/:id", h.Reservation.Get)
		reservations.POST("/:id/cancel", chain(append([]gin.HandlerFunc{auth.RequireAuth()}, reserveMiddleware...), h.Reservation.Cancel)...)
	}
}

func chain(middleware []gin.HandlerFunc, handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(middleware)+len(handlers))
	out = append(out, middleware...)
	return append(out, handlers...)
}
