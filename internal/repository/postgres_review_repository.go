package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresReviewRepository stores the review ledger in PostgreSQL.
// Averages are aggregated on read, never stored.
type PostgresReviewRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresReviewRepository creates a new PostgresReviewRepository
func NewPostgresReviewRepository(pool *pgxpool.Pool) *PostgresReviewRepository {
	return &PostgresReviewRepository{pool: pool}
}

// Add appends a review
func (r *PostgresReviewRepository) Add(ctx context.Context, rv *domain.Review) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.review.add")
	defer span.End()

	span.SetAttributes(
		attribute.String("review_id", rv.ID),
		attribute.String("restaurant_id", rv.RestaurantID),
		attribute.Int("rating", rv.Rating),
	)

	query := `
		INSERT INTO reviews (id, restaurant_id, user_id, user_name, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		rv.ID,
		rv.RestaurantID,
		rv.UserID,
		rv.UserName,
		rv.Rating,
		rv.Comment,
		rv.CreatedAt,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to add review: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ListByRestaurant returns reviews in insertion order
func (r *PostgresReviewRepository) ListByRestaurant(ctx context.Context, restaurantID string) ([]*domain.Review, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.review.list_by_restaurant")
	defer span.End()

	span.SetAttributes(attribute.String("restaurant_id", restaurantID))

	query := `
		SELECT id::text, restaurant_id, user_id, user_name, rating, comment, created_at
		FROM reviews
		WHERE restaurant_id = $1
		ORDER BY seq
	`
	rows, err := r.pool.Query(ctx, query, restaurantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Review, 0)
	for rows.Next() {
		rv := &domain.Review{}
		if err := rows.Scan(&rv.ID, &rv.RestaurantID, &rv.UserID, &rv.UserName, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return out, nil
}

// Summary returns the average and count for one restaurant
func (r *PostgresReviewRepository) Summary(ctx context.Context, restaurantID string) (*domain.RatingSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.review.summary")
	defer span.End()

	span.SetAttributes(attribute.String("restaurant_id", restaurantID))

	query := `SELECT COALESCE(SUM(rating), 0), COUNT(*) FROM reviews WHERE restaurant_id = $1`

	var sum, count int
	if err := r.pool.QueryRow(ctx, query, restaurantID).Scan(&sum, &count); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to summarize reviews: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return &domain.RatingSummary{RestaurantID: restaurantID, Average: domain.Average(sum, count), Count: count}, nil
}

// Summaries returns a summary per reviewed restaurant, ordered by id
func (r *PostgresReviewRepository) Summaries(ctx context.Context) ([]*domain.RatingSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.review.summaries")
	defer span.End()

	query := `
		SELECT restaurant_id, SUM(rating), COUNT(*)
		FROM reviews
		GROUP BY restaurant_id
		ORDER BY restaurant_id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to summarize reviews: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.RatingSummary, 0)
	for rows.Next() {
		var (
			id         string
			sum, count int
		)
		if err := rows.Scan(&id, &sum, &count); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		out = append(out, &domain.RatingSummary{RestaurantID: id, Average: domain.Average(sum, count), Count: count})
	}
	if err := rows.Err(); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to summarize reviews: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return out, nil
}

var _ ReviewRepository = (*PostgresReviewRepository)(nil)
