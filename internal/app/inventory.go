package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_reconciler/internal/domain"
)

const categoriesKey = "categories:view"

type InventoryService struct {
	store    domain.InventoryStore
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewInventoryService(s domain.InventoryStore, c domain.Cache, ttl time.Duration) *InventoryService {
	return &InventoryService{store: s, cache: c, cacheTTL: ttl}
}

// BindFreeUnit reserves the lowest-id free unit of the category labelled
// label. It returns domain.ErrNoFreeUnit only when the category has none left.
func (s *InventoryService) BindFreeUnit(ctx context.Context, label string) (domain.RoomUnit, error) {
	u, err := s.store.ReserveFreeUnit(ctx, label)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.RoomUnit{}, domain.ErrNoFreeUnit
	}
	if err != nil {
		return domain.RoomUnit{}, fmt.Errorf("reserve free unit %q: %w", label, err)
	}
	s.invalidate(ctx)
	return u, nil
}

// SetUnitStatus is the operator override for a single unit.
func (s *InventoryService) SetUnitStatus(ctx context.Context, id int64, status domain.UnitStatus) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("%w: unit status %q", domain.ErrInvalidInput, status)
	}
	ok, err := s.store.SetUnitStatus(ctx, id, "", status)
	return s.changed(ctx, ok, err)
}

// TransitionUnit moves one unit of the category from one status to another.
// A false result means no unit was in from; that is not an error.
func (s *InventoryService) TransitionUnit(ctx context.Context, categoryID string, from, to domain.UnitStatus) (bool, error) {
	if !from.Valid() || !to.Valid() {
		return false, fmt.Errorf("%w: transition %q -> %q", domain.ErrInvalidInput, from, to)
	}
	ok, err := s.store.TransitionUnit(ctx, categoryID, from, to)
	return s.changed(ctx, ok, err)
}

func (s *InventoryService) AddUnit(ctx context.Context, categoryID string) (bool, error) {
	ok, err := s.store.AddUnit(ctx, categoryID)
	return s.changed(ctx, ok, err)
}

func (s *InventoryService) RemoveUnit(ctx context.Context, categoryID string) (bool, error) {
	ok, err := s.store.RemoveUnit(ctx, categoryID)
	return s.changed(ctx, ok, err)
}

func (s *InventoryService) SetCategoryPrice(ctx context.Context, categoryID string, price float64) (bool, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return false, fmt.Errorf("%w: price %v", domain.ErrInvalidInput, price)
	}
	ok, err := s.store.SetCategoryPrice(ctx, categoryID, price)
	return s.changed(ctx, ok, err)
}

// CategoryOfUnit returns the category id a unit belongs to.
func (s *InventoryService) CategoryOfUnit(ctx context.Context, id int64) (string, error) {
	units, err := s.store.ListUnits(ctx)
	if err != nil {
		return "", err
	}
	for _, u := range units {
		if u.ID == id {
			return u.CategoryID, nil
		}
	}
	return "", domain.ErrNotFound
}

// HasCategoryLabel reports whether some category carries the given subtitle.
func (s *InventoryService) HasCategoryLabel(ctx context.Context, label string) (bool, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return false, err
	}
	for _, c := range cats {
		if c.Subtitle == label {
			return true, nil
		}
	}
	return false, nil
}

func (s *InventoryService) changed(ctx context.Context, ok bool, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	if ok {
		s.invalidate(ctx)
	}
	return ok, nil
}

func (s *InventoryService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, categoriesKey); err != nil {
		log.Warn().Err(err).Msg("category cache invalidation failed")
	}
}
