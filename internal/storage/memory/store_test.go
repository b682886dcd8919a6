package memory_test

import (
	"context"
	"testing"

	"hotel_reconciler/internal/domain"
	"hotel_reconciler/internal/storage/memory"
)

func TestStore_RemoveUnitOnlyFree(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.Seed(domain.Category{ID: "dbl", Subtitle: "Doble"}, 1)

	units, _ := s.ListUnits(ctx)
	if ok, _ := s.SetUnitStatus(ctx, units[0].ID, domain.UnitFree, domain.UnitReserved); !ok {
		t.Fatalf("reserve failed")
	}

	ok, err := s.RemoveUnit(ctx, "dbl")
	if err != nil || ok {
		t.Fatalf("removing a reserved unit must fail, got ok=%v err=%v", ok, err)
	}
	after, _ := s.ListUnits(ctx)
	if len(after) != 1 || after[0].Status != domain.UnitReserved {
		t.Fatalf("reserved unit must be untouched: %+v", after)
	}

	if ok, _ := s.AddUnit(ctx, "dbl"); !ok {
		t.Fatalf("add unit failed")
	}
	if ok, _ := s.RemoveUnit(ctx, "dbl"); !ok {
		t.Fatalf("removing a free unit must succeed")
	}
	after, _ = s.ListUnits(ctx)
	if len(after) != 1 || after[0].ID != units[0].ID {
		t.Fatalf("only the reserved unit should remain: %+v", after)
	}
}

func TestStore_TransitionPicksLowestID(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.Seed(domain.Category{ID: "sgl", Subtitle: "Simple"}, 3)

	if ok, _ := s.TransitionUnit(ctx, "sgl", domain.UnitFree, domain.UnitCleaning); !ok {
		t.Fatalf("transition failed")
	}
	units, _ := s.ListUnits(ctx)
	if units[0].Status != domain.UnitCleaning || units[1].Status != domain.UnitFree {
		t.Fatalf("expected lowest id to move: %+v", units)
	}
	if ok, _ := s.TransitionUnit(ctx, "sgl", domain.UnitMaintenance, domain.UnitFree); ok {
		t.Fatalf("no unit in maintenance; transition must report false")
	}
}

func TestStore_SetTransactionStatusIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	_ = s.CreateTransaction(ctx, domain.Transaction{OrderID: "o1", Status: domain.TxPending})

	if ok, _ := s.SetTransactionStatus(ctx, "o1", domain.TxStarted, domain.TxSuccessful, nil); ok {
		t.Fatalf("stale expected status must not write")
	}
	if ok, _ := s.SetTransactionStatus(ctx, "o1", domain.TxPending, domain.TxSuccessful, []byte(`{}`)); !ok {
		t.Fatalf("matching expected status must write")
	}
	tx, _ := s.GetTransaction(ctx, "o1")
	if tx.Status != domain.TxSuccessful || string(tx.Detail) != `{}` {
		t.Fatalf("unexpected tx: %+v", tx)
	}
}
