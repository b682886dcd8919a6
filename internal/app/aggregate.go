package app

import "hotel_reconciler/internal/domain"

// Aggregate projects unit statuses onto their categories. Categories are
// returned in the given order; units of unknown categories are ignored.
//
// Display status: any free unit makes the category free; all units occupied
// or reserved makes it occupied; otherwise the category's stored status.
func Aggregate(categories []domain.Category, units []domain.RoomUnit) []domain.CategoryView {
	idx := make(map[string]int, len(categories))
	out := make([]domain.CategoryView, len(categories))
	for i, c := range categories {
		idx[c.ID] = i
		out[i] = domain.CategoryView{
			ID:       c.ID,
			Title:    c.Title,
			Subtitle: c.Subtitle,
			Price:    c.Price,
			Features: c.Features,
			Images:   c.Images,
			Reverse:  c.Reverse,
			Counts:   make(map[domain.UnitStatus]int, len(domain.UnitStatuses)),
		}
		for _, s := range domain.UnitStatuses {
			out[i].Counts[s] = 0
		}
	}
	for _, u := range units {
		i, ok := idx[u.CategoryID]
		if !ok {
			continue
		}
		out[i].Total++
		out[i].Counts[u.Status]++
	}
	for i := range out {
		out[i].Status = displayStatus(out[i], categories[i].Status)
	}
	return out
}

func displayStatus(v domain.CategoryView, stored domain.UnitStatus) domain.UnitStatus {
	if v.Counts[domain.UnitFree] > 0 {
		return domain.UnitFree
	}
	if v.Total > 0 && v.Counts[domain.UnitOccupied]+v.Counts[domain.UnitReserved] == v.Total {
		return domain.UnitOccupied
	}
	return stored
}
