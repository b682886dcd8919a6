package app

import (
	"context"
	"encoding/json"

	"hotel_reconciler/internal/domain"
)

// Categories returns the aggregated category views, served from cache when warm.
func (s *InventoryService) Categories(ctx context.Context) ([]domain.CategoryView, error) {
	var out []domain.CategoryView
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, categoriesKey, &out); ok {
			return out, nil
		}
	}

	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	units, err := s.store.ListUnits(ctx)
	if err != nil {
		return nil, err
	}
	out = Aggregate(cats, units)

	// optional size guard
	if s.cache != nil {
		if b, _ := json.Marshal(out); len(b) < 1_000_000 {
			_ = s.cache.Set(ctx, categoriesKey, deepCopyViews(out), int(s.cacheTTL.Seconds()))
		}
	}
	return out, nil
}

// Units lists every unit; admin panels use it to drive per-unit overrides.
func (s *InventoryService) Units(ctx context.Context) ([]domain.RoomUnit, error) {
	return s.store.ListUnits(ctx)
}

// deepCopyViews keeps callers from mutating what an in-process cache holds.
func deepCopyViews(in []domain.CategoryView) []domain.CategoryView {
	out := make([]domain.CategoryView, len(in))
	for i, v := range in {
		out[i] = v
		out[i].Features = append([]string(nil), v.Features...)
		out[i].Images = append([]string(nil), v.Images...)
		out[i].Counts = make(map[domain.UnitStatus]int, len(v.Counts))
		for k, n := range v.Counts {
			out[i].Counts[k] = n
		}
	}
	return out
}
