package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const reservationColumns = `
	id::text, restaurant_id, to_char(date, 'YYYY-MM-DD'), slot_id, time, table_type,
	party_size, contact_email, user_id, status, created_at, cancelled_at`

// PostgresReservationRepository implements ReservationRepository using PostgreSQL with pgxpool
type PostgresReservationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresReservationRepository creates a new PostgresReservationRepository
func NewPostgresReservationRepository(pool *pgxpool.Pool) *PostgresReservationRepository {
	return &PostgresReservationRepository{pool: pool}
}

// Create inserts a reservation record
func (r *PostgresReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("reservation_id", res.ID),
		attribute.String("restaurant_id", res.RestaurantID),
		attribute.String("slot_id", res.SlotID),
	)

	query := `
		INSERT INTO reservations (
			id, restaurant_id, date, slot_id, time, table_type,
			party_size, contact_email, user_id, status, created_at, cancelled_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12
		)
	`

	_, err := r.pool.Exec(ctx, query,
		res.ID,
		res.RestaurantID,
		res.Date,
		res.SlotID,
		res.Time,
		res.TableType,
		res.PartySize,
		res.ContactEmail,
		nullString(res.UserID),
		string(res.Status),
		res.CreatedAt,
		res.CancelledAt,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a reservation by its ID
func (r *PostgresReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("reservation_id", id))

	uid, err := parseReservationID(id)
	if err != nil {
		span.SetStatus(codes.Error, "not found")
		return nil, err
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	res, err := scanReservation(r.pool.QueryRow(ctx, query, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrReservationNotFound
		}
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return res, nil
}

// Cancel is a conditional update; only the caller that sees the
// confirmed row gets it back.
func (r *PostgresReservationRepository) Cancel(ctx context.Context, id string, at time.Time) (*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.cancel")
	defer span.End()

	span.SetAttributes(attribute.String("reservation_id", id))

	uid, err := parseReservationID(id)
	if err != nil {
		span.SetStatus(codes.Error, "not found")
		return nil, err
	}

	query := `
		UPDATE reservations
		SET status = 'cancelled', cancelled_at = $2
		WHERE id = $1 AND status = 'confirmed'
		RETURNING ` + reservationColumns

	res, err := scanReservation(r.pool.QueryRow(ctx, query, uid, at))
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return res, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to cancel reservation: %w", err)
	}

	// no row updated: either missing or already cancelled
	if _, err := r.GetByID(ctx, id); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Error, "already cancelled")
	return nil, domain.ErrAlreadyCancelled
}

// ListByUser returns the user's reservations, newest first
func (r *PostgresReservationRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.list_by_user")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	query := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE user_id = $1
		ORDER BY created_at DESC, id`

	return r.list(ctx, span, query, userID)
}

// ListBySlot returns the slot's reservations, newest first
func (r *PostgresReservationRepository) ListBySlot(ctx context.Context, key domain.SlotKey) ([]*domain.Reservation, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.list_by_slot")
	defer span.End()

	span.SetAttributes(attribute.String("slot", key.String()))

	query := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE restaurant_id = $1 AND date = $2 AND slot_id = $3
		ORDER BY created_at DESC, id`

	return r.list(ctx, span, query, key.RestaurantID, key.Date, key.SlotID)
}

// CountConfirmed counts confirmed reservations of a slot per table type
func (r *PostgresReservationRepository) CountConfirmed(ctx context.Context, key domain.SlotKey) (map[string]int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.reservation.count_confirmed")
	defer span.End()

	span.SetAttributes(attribute.String("slot", key.String()))

	query := `
		SELECT table_type, COUNT(*)
		FROM reservations
		WHERE restaurant_id = $1 AND date = $2 AND slot_id = $3 AND status = 'confirmed'
		GROUP BY table_type
	`

	rows, err := r.pool.Query(ctx, query, key.RestaurantID, key.Date, key.SlotID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to count reservations: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			tableType string
			n         int
		)
		if err := rows.Scan(&tableType, &n); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[tableType] = n
	}
	if err := rows.Err(); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to count reservations: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return counts, nil
}

func (r *PostgresReservationRepository) list(ctx context.Context, span trace.Span, query string, args ...any) ([]*domain.Reservation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return out, nil
}

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	var (
		status string
		userID *string
	)
	err := row.Scan(
		&res.ID,
		&res.RestaurantID,
		&res.Date,
		&res.SlotID,
		&res.Time,
		&res.TableType,
		&res.PartySize,
		&res.ContactEmail,
		&userID,
		&status,
		&res.CreatedAt,
		&res.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	res.Status = domain.ReservationStatus(status)
	if userID != nil {
		res.UserID = *userID
	}
	return res, nil
}

// nullString converts empty string to nil for nullable columns
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ ReservationRepository = (*PostgresReservationRepository)(nil)

// parseReservationID maps ids that cannot be a stored UUID to not found
func parseReservationID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, domain.ErrReservationNotFound
	}
	return uid, nil
}
