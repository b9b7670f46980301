package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
	"github.com/khainghsuthwe/ReserveMyTable/internal/dto"
	"github.com/khainghsuthwe/ReserveMyTable/internal/metrics"
	"github.com/khainghsuthwe/ReserveMyTable/internal/repository"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/logger"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ReviewService defines the interface for the review ledger
type ReviewService interface {
	// AddReview appends a review to the ledger
	AddReview(ctx context.Context, req *dto.AddReviewRequest) (*domain.Review, error)

	// ListReviews returns the reviews of a restaurant in insertion order
	ListReviews(ctx context.Context, restaurantID string) ([]*domain.Review, error)

	// AverageRating returns the mean rating, 0 when there are no reviews
	AverageRating(ctx context.Context, restaurantID string) (float64, error)

	// Summary returns average and count for one restaurant
	Summary(ctx context.Context, restaurantID string) (*domain.RatingSummary, error)

	// Summaries returns the summary of every restaurant keyed by id
	Summaries(ctx context.Context) (map[string]*domain.RatingSummary, error)

	// RankRestaurants orders the catalog by average desc, count desc, then id.
	// limit <= 0 returns every restaurant.
	RankRestaurants(ctx context.Context, limit int) ([]*dto.PopularRestaurant, error)
}

type reviewService struct {
	reviews        repository.ReviewRepository
	catalog        CatalogService
	eventPublisher EventPublisher
	group          singleflight.Group
	now            func() time.Time
}

// NewReviewService creates a new review service
func NewReviewService(reviews repository.ReviewRepository, catalog CatalogService, eventPublisher EventPublisher) ReviewService {
	if eventPublisher == nil {
		eventPublisher = NewNoOpEventPublisher()
	}
	return &reviewService{
		reviews:        reviews,
		catalog:        catalog,
		eventPublisher: eventPublisher,
		now:            time.Now,
	}
}

func (s *reviewService) AddReview(ctx context.Context, req *dto.AddReviewRequest) (*domain.Review, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.review.add")
	defer span.End()

	if req == nil || strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.UserName) == "" {
		span.SetStatus(codes.Error, "empty author")
		return nil, domain.ErrEmptyAuthor
	}
	if req.Rating < domain.MinRating || req.Rating > domain.MaxRating {
		span.SetStatus(codes.Error, "invalid rating")
		return nil, domain.ErrInvalidRating
	}
	if _, err := s.catalog.Get(ctx, req.RestaurantID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("restaurant_id", req.RestaurantID),
		attribute.Int("rating", req.Rating),
	)

	review := &domain.Review{
		ID:           uuid.New().String(),
		RestaurantID: req.RestaurantID,
		UserID:       req.UserID,
		UserName:     strings.TrimSpace(req.UserName),
		Rating:       req.Rating,
		Comment:      strings.TrimSpace(req.Comment),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.reviews.Add(ctx, review); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.eventPublisher.PublishReviewAdded(context.WithoutCancel(ctx), review); err != nil {
		logger.Get().Ctx(ctx).Warn("Failed to publish review added event",
			zap.Error(err), zap.String("review_id", review.ID))
	}
	metrics.RecordReview(ctx, review.RestaurantID, review.Rating)

	span.SetStatus(codes.Ok, "")
	return review, nil
}

func (s *reviewService) ListReviews(ctx context.Context, restaurantID string) ([]*domain.Review, error) {
	if _, err := s.catalog.Get(ctx, restaurantID); err != nil {
		return nil, err
	}
	return s.reviews.ListByRestaurant(ctx, restaurantID)
}

func (s *reviewService) AverageRating(ctx context.Context, restaurantID string) (float64, error) {
	summary, err := s.Summary(ctx, restaurantID)
	if err != nil {
		return 0, err
	}
	return summary.Average, nil
}

func (s *reviewService) Summary(ctx context.Context, restaurantID string) (*domain.RatingSummary, error) {
	if _, err := s.catalog.Get(ctx, restaurantID); err != nil {
		return nil, err
	}
	return s.reviews.Summary(ctx, restaurantID)
}

func (s *reviewService) Summaries(ctx context.Context) (map[string]*domain.RatingSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// concurrent listing requests share one aggregation, detached from any single caller
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan("summaries", func() (interface{}, error) {
		list, err := s.reviews.Summaries(shared)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]*domain.RatingSummary, len(list))
		for _, sum := range list {
			byID[sum.RestaurantID] = sum
		}
		return byID, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]*domain.RatingSummary), nil
	}
}

func (s *reviewService) RankRestaurants(ctx context.Context, limit int) ([]*dto.PopularRestaurant, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.review.rank")
	defer span.End()

	restaurants, err := s.catalog.List(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	summaries, err := s.Summaries(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	ranked := make([]*dto.PopularRestaurant, 0, len(restaurants))
	for _, r := range restaurants {
		entry := &dto.PopularRestaurant{RestaurantID: r.ID, Name: r.Name}
		if sum, ok := summaries[r.ID]; ok {
			entry.Average = sum.Average
			entry.Count = sum.Count
		}
		ranked = append(ranked, entry)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Average != b.Average {
			return a.Average > b.Average
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.RestaurantID < b.RestaurantID
	})

	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	for i, entry := range ranked {
		entry.Rank = i + 1
	}

	span.SetAttributes(attribute.Int("results", len(ranked)))
	span.SetStatus(codes.Ok, "")
	return ranked, nil
}
