// Package memory is an in-process store with the same conditional-update
// semantics as the MySQL repo. Every operation runs under one mutex, which
// plays the role of the row lock.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"hotel_reconciler/internal/domain"
)

type Store struct {
	mu         sync.Mutex
	categories map[string]domain.Category
	catOrder   []string
	units      map[int64]domain.RoomUnit
	nextUnit   int64
	txs        map[string]domain.Transaction
	complaints map[string]domain.Complaint
}

func New() *Store {
	return &Store{
		categories: map[string]domain.Category{},
		units:      map[int64]domain.RoomUnit{},
		txs:        map[string]domain.Transaction{},
		complaints: map[string]domain.Complaint{},
	}
}

// Seed adds a category with n free units.
func (s *Store) Seed(c domain.Category, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Status == "" {
		c.Status = domain.UnitFree
	}
	if _, ok := s.categories[c.ID]; !ok {
		s.catOrder = append(s.catOrder, c.ID)
	}
	s.categories[c.ID] = c
	for i := 0; i < n; i++ {
		s.addUnitLocked(c)
	}
}

// ---- inventory ----

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Category, 0, len(s.catOrder))
	for _, id := range s.catOrder {
		out = append(out, s.categories[id])
	}
	return out, nil
}

func (s *Store) ListUnits(ctx context.Context) ([]domain.RoomUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedUnitsLocked(func(domain.RoomUnit) bool { return true }), nil
}

func (s *Store) ReserveFreeUnit(ctx context.Context, label string) (domain.RoomUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	us := s.sortedUnitsLocked(func(u domain.RoomUnit) bool {
		return u.Status == domain.UnitFree && s.categories[u.CategoryID].Subtitle == label
	})
	if len(us) == 0 {
		return domain.RoomUnit{}, domain.ErrNotFound
	}
	u := us[0]
	u.Status = domain.UnitReserved
	s.units[u.ID] = u
	return u, nil
}

func (s *Store) SetUnitStatus(ctx context.Context, id int64, from, to domain.UnitStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[id]
	if !ok || (from != "" && u.Status != from) {
		return false, nil
	}
	u.Status = to
	s.units[id] = u
	return true, nil
}

func (s *Store) TransitionUnit(ctx context.Context, categoryID string, from, to domain.UnitStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	us := s.sortedUnitsLocked(func(u domain.RoomUnit) bool { return u.CategoryID == categoryID && u.Status == from })
	if len(us) == 0 {
		return false, nil
	}
	u := us[0]
	u.Status = to
	s.units[u.ID] = u
	return true, nil
}

func (s *Store) AddUnit(ctx context.Context, categoryID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[categoryID]
	if !ok {
		return false, nil
	}
	s.addUnitLocked(c)
	return true, nil
}

func (s *Store) RemoveUnit(ctx context.Context, categoryID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	us := s.sortedUnitsLocked(func(u domain.RoomUnit) bool { return u.CategoryID == categoryID && u.Status == domain.UnitFree })
	if len(us) == 0 {
		return false, nil
	}
	// newest free unit goes first
	delete(s.units, us[len(us)-1].ID)
	return true, nil
}

func (s *Store) SetCategoryPrice(ctx context.Context, categoryID string, price float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[categoryID]
	if !ok {
		return false, nil
	}
	c.Price = price
	s.categories[categoryID] = c
	return true, nil
}

func (s *Store) addUnitLocked(c domain.Category) {
	s.nextUnit++
	n := 1
	for _, u := range s.units {
		if u.CategoryID == c.ID {
			n++
		}
	}
	s.units[s.nextUnit] = domain.RoomUnit{
		ID:         s.nextUnit,
		CategoryID: c.ID,
		Label:      fmt.Sprintf("%s #%d", c.Subtitle, n),
		Status:     domain.UnitFree,
	}
}

func (s *Store) sortedUnitsLocked(keep func(domain.RoomUnit) bool) []domain.RoomUnit {
	var out []domain.RoomUnit
	for _, u := range s.units {
		if keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ---- ledger ----

func (s *Store) CreateTransaction(ctx context.Context, tx domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[tx.OrderID]; ok {
		return fmt.Errorf("%w: duplicate order %s", domain.ErrInvalidInput, tx.OrderID)
	}
	s.txs[tx.OrderID] = tx
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, orderID string) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[orderID]
	if !ok {
		return domain.Transaction{}, domain.ErrNotFound
	}
	return tx, nil
}

func (s *Store) SetTransactionStatus(ctx context.Context, orderID string, expected, status domain.TxStatus, detail []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[orderID]
	if !ok || tx.Status != expected {
		return false, nil
	}
	tx.Status = status
	tx.Detail = append([]byte(nil), detail...)
	s.txs[orderID] = tx
	return true, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[orderID]; !ok {
		return false, nil
	}
	delete(s.txs, orderID)
	return true, nil
}

func (s *Store) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].OrderID > out[j].OrderID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ---- complaints ----

func (s *Store) CreateComplaint(ctx context.Context, c domain.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.complaints[c.ID] = c
	return nil
}

func (s *Store) SetComplaintStatus(ctx context.Context, id, status string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	if !ok {
		return false, nil
	}
	c.Status = status
	s.complaints[id] = c
	return true, nil
}

// Complaint is a test helper.
func (s *Store) Complaint(id string) (domain.Complaint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	return c, ok
}
