package dto

import "github.com/khainghsuthwe/ReserveMyTable/internal/domain"

// RestaurantResponse is a catalog entry with its rating summary
type RestaurantResponse struct {
	*domain.Restaurant
	Rating RatingResponse `json:"rating"`
}

// RatingResponse is the read-time review aggregate
type RatingResponse struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// AddReviewRequest represents request to add a review
type AddReviewRequest struct {
	RestaurantID string `json:"-"`
	UserID       string `json:"-"`
	UserName     string `json:"-"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment" binding:"max=2000"`
}

// ReviewListResponse carries reviews in insertion order plus their summary
type ReviewListResponse struct {
	RestaurantID string           `json:"restaurant_id"`
	Rating       RatingResponse   `json:"rating"`
	Reviews      []*domain.Review `json:"reviews"`
}

// FromSummary converts a RatingSummary, treating nil as no reviews
func FromSummary(s *domain.RatingSummary) RatingResponse {
	if s == nil {
		return RatingResponse{}
	}
	return RatingResponse{Average: s.Average, Count: s.Count}
}

// FromRestaurant combines a restaurant with its summary
func FromRestaurant(r *domain.Restaurant, s *domain.RatingSummary) *RestaurantResponse {
	return &RestaurantResponse{Restaurant: r, Rating: FromSummary(s)}
}

// PopularRestaurant is one entry of the popularity ranking
type PopularRestaurant struct {
	Rank         int     `json:"rank"`
	RestaurantID string  `json:"restaurant_id"`
	Name         string  `json:"name"`
	Average      float64 `json:"average"`
	Count        int     `json:"count"`
}
