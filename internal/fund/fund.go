// Package fund orchestrates one analysis-and-trade cycle: collect quotes,
// snapshot the portfolio, ask the decision engine, execute the result.
package fund

import (
	"context"
	"time"

	"github.com/AristidesAI/IBKR-AIHedge/internal/analysis"
	"github.com/AristidesAI/IBKR-AIHedge/internal/config"
	"github.com/AristidesAI/IBKR-AIHedge/internal/logger"
	"github.com/AristidesAI/IBKR-AIHedge/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Brokerage is the slice of the broker session one cycle consumes.
type Brokerage interface {
	OrderSubmitter
	RequestQuotes(ctx context.Context, symbols []string, timeout time.Duration) (map[string]models.Quote, error)
	PositionSnapshot() map[string]models.Position
	Account() models.AccountState
	PendingOrderCount() int
}

type Fund struct {
	cfg      *config.Config
	broker   Brokerage
	analyzer analysis.Analyzer
	executor *Executor
	log      *logger.Logger
}

func New(cfg *config.Config, broker Brokerage, analyzer analysis.Analyzer, executor *Executor, log *logger.Logger) *Fund {
	return &Fund{
		cfg:      cfg,
		broker:   broker,
		analyzer: analyzer,
		executor: executor,
		log:      log,
	}
}

// RunCycle runs one full cycle. Any failure, including a panic out of the
// analyzer, is contained here so the scheduler keeps firing.
func (f *Fund) RunCycle(ctx context.Context) {
	cycleID := uuid.NewString()[:8]
	entry := f.logEntry().WithField("cycle_id", cycleID)

	defer func() {
		if r := recover(); r != nil {
			entry.WithField("panic", r).Error("cycle aborted by panic")
		}
	}()

	started := time.Now()
	entry.WithField("watchlist", f.cfg.Trading.Watchlist).Info("cycle started")

	quotes, err := f.broker.RequestQuotes(ctx, f.cfg.Trading.Watchlist, f.cfg.Broker.QuoteTimeout)
	if err != nil {
		entry.WithError(err).Error("market data request failed, skipping cycle")
		return
	}

	available := make([]string, 0, len(f.cfg.Trading.Watchlist))
	for _, symbol := range f.cfg.Trading.Watchlist {
		if quotes[symbol].HasLast() {
			available = append(available, symbol)
		} else {
			entry.WithField("symbol", symbol).Warn("no market data, excluding from analysis")
		}
	}
	if len(available) == 0 {
		entry.Warn("no market data available, skipping cycle")
		return
	}

	snap := BuildSnapshot(f.broker.Account().Cash, f.broker.PositionSnapshot())
	window := analysis.Window{
		Start: started.AddDate(0, 0, -f.cfg.Trading.WindowDays),
		End:   started,
	}

	analysisStart := time.Now()
	decisions, err := f.analyzer.Analyze(ctx, snap, available, window)
	entry.WithFields(logrus.Fields{
		"symbols":  len(available),
		"duration": time.Since(analysisStart).String(),
	}).Info("analysis finished")
	if err != nil {
		entry.WithError(err).Error("analysis failed, skipping cycle")
		return
	}
	if len(decisions) == 0 {
		entry.Warn("no trading decisions returned")
		return
	}

	executed := f.executor.Execute(ctx, cycleID, decisions, quotes)

	f.logPortfolioStatus(entry)

	entry.WithFields(logrus.Fields{
		"decisions": len(decisions),
		"trades":    len(executed),
		"pending":   f.broker.PendingOrderCount(),
		"duration":  time.Since(started).String(),
	}).Info("cycle finished")
}

func (f *Fund) logPortfolioStatus(entry *logrus.Entry) {
	account := f.broker.Account()
	positions := f.broker.PositionSnapshot()

	entry.WithFields(logrus.Fields{
		"cash":            account.Cash,
		"net_liquidation": account.NetLiquidation,
		"currency":        f.cfg.Trading.Currency,
		"positions":       len(positions),
	}).Info("portfolio status")

	for symbol, pos := range positions {
		entry.WithFields(logrus.Fields{
			"symbol":         symbol,
			"quantity":       pos.Quantity,
			"avg_cost":       pos.AvgCost,
			"market_value":   pos.MarketValue,
			"unrealized_pnl": pos.UnrealizedPnL,
		}).Info("position")
	}
}

func (f *Fund) logEntry() *logrus.Entry {
	return f.log.WithComponent("fund")
}
