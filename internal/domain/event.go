package domain

import "time"

// EventType names an outbound domain event
type EventType string

const (
	EventReservationConfirmed EventType = "reservation.confirmed"
	EventReservationCancelled EventType = "reservation.cancelled"
	EventReviewAdded          EventType = "review.added"
	EventCapacityResized      EventType = "availability.resized"
)

// Event is the envelope published to the event stream
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	RestaurantID string      `json:"restaurant_id"`
	OccurredAt   time.Time   `json:"occurred_at"`
	Payload      interface{} `json:"payload"`
}

// Key partitions events by restaurant so per-restaurant order is kept
func (e *Event) Key() string {
	return e.RestaurantID
}
