package domain

import "errors"

// Domain errors
var (
	// Validation errors
	ErrInvalidRestaurantID  = errors.New("invalid restaurant id")
	ErrInvalidDate          = errors.New("date must be formatted YYYY-MM-DD")
	ErrInvalidSlotID        = errors.New("invalid slot id")
	ErrInvalidTime          = errors.New("time must be formatted HH:MM")
	ErrInvalidTableType     = errors.New("invalid table type")
	ErrInvalidDelta         = errors.New("delta must be non-zero")
	ErrInvalidCapacity      = errors.New("capacity cannot be negative")
	ErrInvalidPartySize     = errors.New("party size must be at least 1")
	ErrPartyTooLarge        = errors.New("party size exceeds the seats of this table type")
	ErrInvalidEmail         = errors.New("invalid contact email")
	ErrInvalidRating        = errors.New("rating must be between 1 and 5")
	ErrEmptyAuthor          = errors.New("review author is required")
	ErrInvalidReservationID = errors.New("invalid reservation id")

	// Not found errors
	ErrRestaurantNotFound  = errors.New("restaurant not found")
	ErrSlotNotFound        = errors.New("time slot not found")
	ErrTableTypeNotFound   = errors.New("table type not found")
	ErrReservationNotFound = errors.New("reservation not found")

	// Capacity errors
	ErrCapacity        = errors.New("capacity exceeded")
	ErrSlotUnavailable = errors.New("selected time slot is no longer available")

	// State errors
	ErrAlreadyCancelled = errors.New("reservation already cancelled")
	ErrCounterChanged   = errors.New("availability counter changed concurrently")

	// Authorization errors
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("not allowed")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrRestaurantNotFound) ||
		errors.Is(err, ErrSlotNotFound) ||
		errors.Is(err, ErrTableTypeNotFound) ||
		errors.Is(err, ErrReservationNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRestaurantID) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidSlotID) ||
		errors.Is(err, ErrInvalidTime) ||
		errors.Is(err, ErrInvalidTableType) ||
		errors.Is(err, ErrInvalidDelta) ||
		errors.Is(err, ErrInvalidCapacity) ||
		errors.Is(err, ErrInvalidPartySize) ||
		errors.Is(err, ErrPartyTooLarge) ||
		errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrInvalidRating) ||
		errors.Is(err, ErrEmptyAuthor) ||
		errors.Is(err, ErrInvalidReservationID)
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrCapacity) ||
		errors.Is(err, ErrSlotUnavailable) ||
		errors.Is(err, ErrAlreadyCancelled) ||
		errors.Is(err, ErrCounterChanged)
}
