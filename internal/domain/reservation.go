package domain

import "time"

// ReservationStatus is the lifecycle state of a reservation
type ReservationStatus string

const (
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// Reservation is a confirmed hold of one table of one type in one slot
type Reservation struct {
	ID           string            `json:"id"`
	RestaurantID string            `json:"restaurant_id"`
	Date         string            `json:"date"`
	SlotID       string            `json:"slot_id"`
	Time         string            `json:"time"`
	TableType    string            `json:"table_type"`
	PartySize    int               `json:"party_size"`
	ContactEmail string            `json:"contact_email"`
	UserID       string            `json:"user_id,omitempty"`
	Status       ReservationStatus `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	CancelledAt  *time.Time        `json:"cancelled_at,omitempty"`
}

// Key returns the slot this reservation holds a table in
func (r *Reservation) Key() SlotKey {
	return SlotKey{RestaurantID: r.RestaurantID, Date: r.Date, SlotID: r.SlotID}
}

// IsCancelled reports whether the reservation was cancelled
func (r *Reservation) IsCancelled() bool {
	return r.Status == ReservationStatusCancelled
}

// Cancel moves a confirmed reservation to cancelled
func (r *Reservation) Cancel(at time.Time) error {
	if r.IsCancelled() {
		return ErrAlreadyCancelled
	}
	r.Status = ReservationStatusCancelled
	r.CancelledAt = &at
	return nil
}

// OwnedBy reports whether p may manage this reservation
func (r *Reservation) OwnedBy(p *Principal) bool {
	if p == nil {
		return false
	}
	return p.IsOwner() || (r.UserID != "" && r.UserID == p.ID)
}
