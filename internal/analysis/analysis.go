// Package analysis is the boundary to the external decision engine. The
// engine consumes a portfolio snapshot plus an instrument set and returns
// per-symbol trade decisions; nothing in here executes trades.
package analysis

import (
	"context"
	"time"
)

// Decision is one per-symbol instruction from the engine.
type Decision struct {
	Action     string  `json:"action"`
	Quantity   int64   `json:"quantity"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// PositionView splits a signed position into the long/short shape the
// engine expects.
type PositionView struct {
	Long            int64   `json:"long"`
	Short           int64   `json:"short"`
	LongCostBasis   float64 `json:"long_cost_basis"`
	ShortCostBasis  float64 `json:"short_cost_basis"`
	ShortMarginUsed float64 `json:"short_margin_used"`
}

// GainView carries realized gains per side. This integration does not track
// realized gains, so both legs stay zero.
type GainView struct {
	Long  float64 `json:"long"`
	Short float64 `json:"short"`
}

// Snapshot is the read-only portfolio state handed to the engine. Margin is
// fixed at zero in this integration.
type Snapshot struct {
	Cash              float64                 `json:"cash"`
	MarginRequirement float64                 `json:"margin_requirement"`
	MarginUsed        float64                 `json:"margin_used"`
	Positions         map[string]PositionView `json:"positions"`
	RealizedGains     map[string]GainView     `json:"realized_gains"`
}

// Window is the historical range the engine should consider.
type Window struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// Analyzer produces decisions for a symbol set. Implementations are treated
// as synchronous and side-effect-free; callers log duration but impose no
// timeout of their own.
type Analyzer interface {
	Analyze(ctx context.Context, snap Snapshot, symbols []string, window Window) (map[string]Decision, error)
}

// Func adapts a plain function to the Analyzer interface.
type Func func(ctx context.Context, snap Snapshot, symbols []string, window Window) (map[string]Decision, error)

func (f Func) Analyze(ctx context.Context, snap Snapshot, symbols []string, window Window) (map[string]Decision, error) {
	return f(ctx, snap, symbols, window)
}
