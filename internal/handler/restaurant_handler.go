package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/khainghsuthwe/ReserveMyTable/internal/dto"
	"github.com/khainghsuthwe/ReserveMyTable/internal/service"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/response"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/telemetry"
)

const defaultPopularLimit = 10

// RestaurantHandler serves the restaurant catalog
type RestaurantHandler struct {
	catalog service.CatalogService
	reviews service.ReviewService
}

// NewRestaurantHandler creates a new RestaurantHandler
func NewRestaurantHandler(catalog service.CatalogService, reviews service.ReviewService) *RestaurantHandler {
	return &RestaurantHandler{
		catalog: catalog,
		reviews: reviews,
	}
}

// List handles GET /restaurants
func (h *RestaurantHandler) List(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.restaurant.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	restaurants, err := h.catalog.List(ctx)
	if err != nil {
		handleError(c, err)
		return
	}
	summaries, err := h.reviews.Summaries(ctx)
	if err != nil {
		handleError(c, err)
		return
	}

	out := make([]*dto.RestaurantResponse, len(restaurants))
	for i, r := range restaurants {
		out[i] = dto.FromRestaurant(r, summaries[r.ID])
	}
	response.List(c, out, len(out))
}

// Popular handles GET /restaurants/popular
func (h *RestaurantHandler) Popular(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.restaurant.popular")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	limit := defaultPopularLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}

	ranked, err := h.reviews.RankRestaurants(ctx, limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.List(c, ranked, len(ranked))
}

// Get handles GET /restaurants/:id
func (h *RestaurantHandler) Get(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.restaurant.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	restaurant, err := h.catalog.Get(ctx, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	summary, err := h.reviews.Summary(ctx, restaurant.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.FromRestaurant(restaurant, summary))
}
