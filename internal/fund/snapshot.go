package fund

import (
	"github.com/AristidesAI/IBKR-AIHedge/internal/analysis"
	"github.com/AristidesAI/IBKR-AIHedge/internal/models"
)

// BuildSnapshot projects the ledger into the shape the analysis engine
// expects. Signed quantities split into long/short legs; margin fields stay
// zero in this integration. The projection is a copy and never touches the
// ledger.
func BuildSnapshot(cash float64, positions map[string]models.Position) analysis.Snapshot {
	snap := analysis.Snapshot{
		Cash:          cash,
		Positions:     make(map[string]analysis.PositionView, len(positions)),
		RealizedGains: make(map[string]analysis.GainView, len(positions)),
	}

	for symbol, pos := range positions {
		view := analysis.PositionView{}
		if pos.Quantity > 0 {
			view.Long = pos.Quantity
			view.LongCostBasis = pos.AvgCost
		} else {
			view.Short = -pos.Quantity
			view.ShortCostBasis = pos.AvgCost
		}
		snap.Positions[symbol] = view
		snap.RealizedGains[symbol] = analysis.GainView{}
	}

	return snap
}
