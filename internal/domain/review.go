package domain

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// Review is an append-only customer rating of a restaurant
type Review struct {
	ID           string    `json:"id"`
	RestaurantID string    `json:"restaurant_id"`
	UserID       string    `json:"user_id"`
	UserName     string    `json:"user_name"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
}

// RatingSummary is computed from the ledger on read
type RatingSummary struct {
	RestaurantID string  `json:"restaurant_id"`
	Average      float64 `json:"average"`
	Count        int     `json:"count"`
}

// Average returns sum/count, or 0 when there are no reviews
func Average(sum, count int) float64 {
	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count)
}
