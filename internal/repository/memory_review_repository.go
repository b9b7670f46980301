package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
)

type ratingTally struct {
	sum   int
	count int
}

// MemoryReviewRepository is an in-process append-only ledger.
// Running sums are kept per restaurant so summaries cost O(1).
type MemoryReviewRepository struct {
	mu      sync.RWMutex
	reviews map[string][]*domain.Review
	tallies map[string]*ratingTally
}

// NewMemoryReviewRepository creates an empty ledger
func NewMemoryReviewRepository() *MemoryReviewRepository {
	return &MemoryReviewRepository{
		reviews: make(map[string][]*domain.Review),
		tallies: make(map[string]*ratingTally),
	}
}

// Add appends a review
func (m *MemoryReviewRepository) Add(ctx context.Context, r *domain.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *r
	m.reviews[r.RestaurantID] = append(m.reviews[r.RestaurantID], &c)
	t, ok := m.tallies[r.RestaurantID]
	if !ok {
		t = &ratingTally{}
		m.tallies[r.RestaurantID] = t
	}
	t.sum += r.Rating
	t.count++
	return nil
}

// ListByRestaurant returns reviews in insertion order
func (m *MemoryReviewRepository) ListByRestaurant(ctx context.Context, restaurantID string) ([]*domain.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src := m.reviews[restaurantID]
	out := make([]*domain.Review, len(src))
	for i, r := range src {
		c := *r
		out[i] = &c
	}
	return out, nil
}

// Summary returns the average and count for one restaurant
func (m *MemoryReviewRepository) Summary(ctx context.Context, restaurantID string) (*domain.RatingSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := &domain.RatingSummary{RestaurantID: restaurantID}
	if t, ok := m.tallies[restaurantID]; ok {
		s.Average = domain.Average(t.sum, t.count)
		s.Count = t.count
	}
	return s, nil
}

// Summaries returns a summary per reviewed restaurant, ordered by id
func (m *MemoryReviewRepository) Summaries(ctx context.Context) ([]*domain.RatingSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.RatingSummary, 0, len(m.tallies))
	for id, t := range m.tallies {
		out = append(out, &domain.RatingSummary{RestaurantID: id, Average: domain.Average(t.sum, t.count), Count: t.count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RestaurantID < out[j].RestaurantID })
	return out, nil
}

var _ ReviewRepository = (*MemoryReviewRepository)(nil)
