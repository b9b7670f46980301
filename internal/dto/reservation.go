package dto

import (
	"time"

	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
)

// ReserveRequest represents request to reserve one table
type ReserveRequest struct {
	RestaurantID string `json:"restaurant_id" binding:"required"`
	Date         string `json:"date" binding:"required"`
	SlotID       string `json:"slot_id" binding:"required"`
	TableType    string `json:"table_type" binding:"required"`
	PartySize    int    `json:"party_size"`
	ContactEmail string `json:"contact_email"`
}

// Key returns the slot the request targets
func (r *ReserveRequest) Key() domain.SlotKey {
	return domain.SlotKey{RestaurantID: r.RestaurantID, Date: r.Date, SlotID: r.SlotID}
}

// ReservationResponse represents a reservation in API response
type ReservationResponse struct {
	ID           string     `json:"id"`
	RestaurantID string     `json:"restaurant_id"`
	Date         string     `json:"date"`
	SlotID       string     `json:"slot_id"`
	Time         string     `json:"time"`
	TableType    string     `json:"table_type"`
	PartySize    int        `json:"party_size"`
	ContactEmail string     `json:"contact_email"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
}

// FromReservation converts domain Reservation to ReservationResponse
func FromReservation(r *domain.Reservation) *ReservationResponse {
	return &ReservationResponse{
		ID:           r.ID,
		RestaurantID: r.RestaurantID,
		Date:         r.Date,
		SlotID:       r.SlotID,
		Time:         r.Time,
		TableType:    r.TableType,
		PartySize:    r.PartySize,
		ContactEmail: r.ContactEmail,
		Status:       string(r.Status),
		CreatedAt:    r.CreatedAt,
		CancelledAt:  r.CancelledAt,
	}
}

// FromReservations converts a slice of reservations
func FromReservations(rs []*domain.Reservation) []*ReservationResponse {
	out := make([]*ReservationResponse, len(rs))
	for i, r := range rs {
		out[i] = FromReservation(r)
	}
	return out
}
