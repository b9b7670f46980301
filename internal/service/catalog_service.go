package service

import (
	"context"
	"strings"

	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
	"github.com/khainghsuthwe/ReserveMyTable/internal/repository"
)

// CatalogService serves immutable restaurant reference data
type CatalogService interface {
	// List returns every restaurant ordered by id
	List(ctx context.Context) ([]*domain.Restaurant, error)

	// Get returns one restaurant
	Get(ctx context.Context, restaurantID string) (*domain.Restaurant, error)

	// TableType returns the named table type of a restaurant
	TableType(ctx context.Context, restaurantID, tableType string) (domain.TableType, error)
}

type catalogService struct {
	restaurants repository.RestaurantRepository
}

// NewCatalogService creates a new catalog service
func NewCatalogService(restaurants repository.RestaurantRepository) CatalogService {
	return &catalogService{restaurants: restaurants}
}

func (s *catalogService) List(ctx context.Context) ([]*domain.Restaurant, error) {
	return s.restaurants.List(ctx)
}

func (s *catalogService) Get(ctx context.Context, restaurantID string) (*domain.Restaurant, error) {
	if strings.TrimSpace(restaurantID) == "" {
		return nil, domain.ErrInvalidRestaurantID
	}
	return s.restaurants.GetByID(ctx, restaurantID)
}

func (s *catalogService) TableType(ctx context.Context, restaurantID, tableType string) (domain.TableType, error) {
	if strings.TrimSpace(tableType) == "" {
		return domain.TableType{}, domain.ErrInvalidTableType
	}
	r, err := s.Get(ctx, restaurantID)
	if err != nil {
		return domain.TableType{}, err
	}
	tt, ok := r.TableType(tableType)
	if !ok {
		return domain.TableType{}, domain.ErrTableTypeNotFound
	}
	return tt, nil
}
