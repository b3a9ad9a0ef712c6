package fund

import (
	"testing"

	"github.com/AristidesAI/IBKR-AIHedge/internal/models"
)

func TestBuildSnapshotLongAndShort(t *testing.T) {
	positions := map[string]models.Position{
		"CBA": {Symbol: "CBA", Quantity: 10, AvgCost: 100.5},
		"BHP": {Symbol: "BHP", Quantity: -10, AvgCost: 40.0},
	}

	snap := BuildSnapshot(200, positions)

	if snap.Cash != 200 {
		t.Errorf("Cash = %f, want 200", snap.Cash)
	}

	long := snap.Positions["CBA"]
	if long.Long != 10 || long.LongCostBasis != 100.5 || long.Short != 0 {
		t.Errorf("CBA view = %+v, want long 10 at 100.5", long)
	}

	short := snap.Positions["BHP"]
	if short.Short != 10 || short.ShortCostBasis != 40.0 || short.Long != 0 {
		t.Errorf("BHP view = %+v, want short 10 at 40.0", short)
	}
}

func TestBuildSnapshotGainsZeroed(t *testing.T) {
	snap := BuildSnapshot(0, map[string]models.Position{
		"TLS": {Symbol: "TLS", Quantity: 3},
	})

	gains, ok := snap.RealizedGains["TLS"]
	if !ok {
		t.Fatal("every position should have a realized-gains entry")
	}
	if gains.Long != 0 || gains.Short != 0 {
		t.Errorf("gains = %+v, want zeroes", gains)
	}
}

func TestBuildSnapshotEmpty(t *testing.T) {
	snap := BuildSnapshot(150, nil)

	if snap.Cash != 150 {
		t.Errorf("Cash = %f, want 150", snap.Cash)
	}
	if len(snap.Positions) != 0 || len(snap.RealizedGains) != 0 {
		t.Errorf("empty ledger should project empty maps, got %+v", snap)
	}
}
