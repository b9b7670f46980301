package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/khainghsuthwe/ReserveMyTable/internal/auth"
	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
	"github.com/khainghsuthwe/ReserveMyTable/internal/dto"
	"github.com/khainghsuthwe/ReserveMyTable/internal/service"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/response"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/telemetry"
)

// ReviewHandler serves the review ledger
type ReviewHandler struct {
	reviews service.ReviewService
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(reviews service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// List handles GET /restaurants/:id/reviews
func (h *ReviewHandler) List(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.review.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	restaurantID := c.Param("id")
	reviews, err := h.reviews.ListReviews(ctx, restaurantID)
	if err != nil {
		handleError(c, err)
		return
	}
	summary, err := h.reviews.Summary(ctx, restaurantID)
	if err != nil {
		handleError(c, err)
		return
	}

	if reviews == nil {
		reviews = []*domain.Review{}
	}
	response.Success(c, &dto.ReviewListResponse{
		RestaurantID: restaurantID,
		Rating:       dto.FromSummary(summary),
		Reviews:      reviews,
	})
}

// Add handles POST /restaurants/:id/reviews
func (h *ReviewHandler) Add(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.review.add")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	principal := auth.Principal(c)
	if principal == nil {
		handleError(c, domain.ErrUnauthenticated)
		return
	}

	var req dto.AddReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	req.RestaurantID = c.Param("id")
	req.UserID = principal.ID
	req.UserName = principal.Name

	review, err := h.reviews.AddReview(ctx, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, review)
}
