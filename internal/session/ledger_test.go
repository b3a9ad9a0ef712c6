package session

import (
	"testing"

	"github.com/AristidesAI/IBKR-AIHedge/internal/models"
)

func TestPositionLedgerUpsertAndRemove(t *testing.T) {
	l := NewPositionLedger(200)

	l.upsert(models.Position{Symbol: "CBA", Quantity: 10, AvgCost: 100})
	if l.Count() != 1 {
		t.Fatalf("Count = %d, want 1", l.Count())
	}

	// Second update for the same symbol replaces, never duplicates.
	l.upsert(models.Position{Symbol: "CBA", Quantity: 15, AvgCost: 101})
	if l.Count() != 1 {
		t.Fatalf("Count after replace = %d, want 1", l.Count())
	}
	p, ok := l.Get("CBA")
	if !ok || p.Quantity != 15 {
		t.Errorf("Get(CBA) = (%+v, %v), want quantity 15", p, ok)
	}

	// Zero quantity removes the entry entirely.
	l.upsert(models.Position{Symbol: "CBA", Quantity: 0})
	if _, ok := l.Get("CBA"); ok {
		t.Error("zero-quantity update should remove the position")
	}
	if l.Count() != 0 {
		t.Errorf("Count after removal = %d, want 0", l.Count())
	}
}

func TestPositionLedgerAccount(t *testing.T) {
	l := NewPositionLedger(200)

	if got := l.Account(); got.Cash != 200 {
		t.Errorf("initial cash = %f, want 200", got.Cash)
	}

	l.setCash(150.5)
	l.setNetLiquidation(310.25)

	got := l.Account()
	if got.Cash != 150.5 || got.NetLiquidation != 310.25 {
		t.Errorf("Account = %+v, want cash 150.5 / net 310.25", got)
	}
}

func TestPositionLedgerSnapshotIsCopy(t *testing.T) {
	l := NewPositionLedger(0)
	l.upsert(models.Position{Symbol: "BHP", Quantity: 5})

	snap := l.Snapshot()
	l.upsert(models.Position{Symbol: "BHP", Quantity: 9})

	if snap["BHP"].Quantity != 5 {
		t.Errorf("snapshot mutated by later update: quantity = %d", snap["BHP"].Quantity)
	}
}
