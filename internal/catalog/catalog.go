package catalog

import (
	"context"
	"errors"
	"fmt"

	"ms-booking/internal/models"
)

// ErrSpaceNotFound is returned when a space id does not exist or the space
// has been soft-disabled.
var ErrSpaceNotFound = errors.New("space not found")

// SpaceStore reads spaces. Implementations return (nil, nil) when the id is
// unknown.
type SpaceStore interface {
	GetSpace(ctx context.Context, spaceID string) (*models.Space, error)
	ListSpaces(ctx context.Context) ([]models.Space, error)
}

// Service is the read-mostly registry of bookable spaces and their rate
// cards. Space mutation happens in the admin domain, not here.
type Service struct {
	Store SpaceStore
}

func NewService(store SpaceStore) *Service {
	return &Service{Store: store}
}

func (s *Service) GetSpace(ctx context.Context, spaceID string) (*models.Space, error) {
	sp, err := s.Store.GetSpace(ctx, spaceID)
	if err != nil {
		return nil, fmt.Errorf("get space %s: %w", spaceID, err)
	}
	if sp == nil || sp.Disabled {
		return nil, ErrSpaceNotFound
	}
	return sp, nil
}

// GetRateCard returns the rate card for a space, or ErrSpaceNotFound.
func (s *Service) GetRateCard(ctx context.Context, spaceID string) (models.RateCard, error) {
	sp, err := s.GetSpace(ctx, spaceID)
	if err != nil {
		return models.RateCard{}, err
	}
	return sp.RateCard, nil
}

// IsBookable reports whether a space can accept reservations: it must exist,
// carry the availability flag, and price at least one tier.
func (s *Service) IsBookable(ctx context.Context, spaceID string) (bool, error) {
	sp, err := s.GetSpace(ctx, spaceID)
	if errors.Is(err, ErrSpaceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sp.Available && sp.RateCard.HasPositiveRate(), nil
}

func (s *Service) ListSpaces(ctx context.Context) ([]models.Space, error) {
	return s.Store.ListSpaces(ctx)
}
