package fund

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AristidesAI/IBKR-AIHedge/internal/analysis"
	"github.com/AristidesAI/IBKR-AIHedge/internal/journal"
	"github.com/AristidesAI/IBKR-AIHedge/internal/logger"
	"github.com/AristidesAI/IBKR-AIHedge/internal/models"

	"github.com/sirupsen/logrus"
)

// OrderSubmitter is the slice of the broker session the executor needs.
type OrderSubmitter interface {
	SubmitOrder(symbol string, side models.OrderSide, quantity int64) (int64, error)
}

// Executor turns a decision set into order submissions and trade records.
// One symbol failing never aborts the rest of the batch, and re-running the
// same cycle after a partial failure skips symbols that already succeeded.
type Executor struct {
	broker  OrderSubmitter
	journal *journal.Journal
	log     *logger.Logger

	mu        sync.Mutex
	completed map[string]map[string]bool // cycle → symbols already submitted
	trades    []models.TradeRecord
}

func NewExecutor(broker OrderSubmitter, jrnl *journal.Journal, log *logger.Logger) *Executor {
	return &Executor{
		broker:    broker,
		journal:   jrnl,
		log:       log,
		completed: make(map[string]map[string]bool),
	}
}

// normalizeAction maps engine actions onto broker sides. The second return
// is false for hold; unknown actions return ok=false.
func normalizeAction(action string) (side models.OrderSide, actionable bool, ok bool) {
	switch strings.ToLower(action) {
	case "buy", "cover":
		return models.OrderSideBuy, true, true
	case "sell", "short":
		return models.OrderSideSell, true, true
	case "hold":
		return "", false, true
	default:
		return "", false, false
	}
}

// Execute processes every decision, submitting at most one order per
// symbol. The recorded price is the last-known quote at submission time,
// not the eventual fill price; the divergence is expected.
func (x *Executor) Execute(ctx context.Context, cycleID string, decisions map[string]analysis.Decision, quotes map[string]models.Quote) []models.TradeRecord {
	x.beginCycle(cycleID)

	symbols := make([]string, 0, len(decisions))
	for symbol := range decisions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var executed []models.TradeRecord
	for _, symbol := range symbols {
		if rec, ok := x.executeOne(ctx, cycleID, symbol, decisions[symbol], quotes[symbol]); ok {
			executed = append(executed, rec)
		}
	}
	return executed
}

func (x *Executor) executeOne(ctx context.Context, cycleID, symbol string, decision analysis.Decision, quote models.Quote) (models.TradeRecord, bool) {
	entry := x.logEntry().WithFields(logrus.Fields{
		"cycle_id":   cycleID,
		"symbol":     symbol,
		"action":     decision.Action,
		"quantity":   decision.Quantity,
		"confidence": decision.Confidence,
	})
	entry.WithField("reasoning", decision.Reasoning).Info("trade decision")

	if x.isCompleted(cycleID, symbol) {
		entry.Info("already executed in this cycle, skipping")
		return models.TradeRecord{}, false
	}

	side, actionable, ok := normalizeAction(decision.Action)
	if !ok {
		entry.Warn("unknown action, skipping")
		return models.TradeRecord{}, false
	}
	if !actionable || decision.Quantity == 0 {
		entry.Info("holding position")
		return models.TradeRecord{}, false
	}

	orderID, err := x.broker.SubmitOrder(symbol, side, decision.Quantity)
	if err != nil {
		entry.WithError(err).Error("trade execution failed")
		return models.TradeRecord{}, false
	}

	price := 0.0
	if quote.Last != nil {
		price = *quote.Last
	}

	rec := models.TradeRecord{
		CycleID:   cycleID,
		Symbol:    symbol,
		Action:    strings.ToLower(decision.Action),
		Quantity:  decision.Quantity,
		Price:     price,
		OrderID:   orderID,
		Timestamp: time.Now(),
	}

	x.record(cycleID, rec)

	if x.journal != nil {
		if err := x.journal.Append(ctx, rec); err != nil {
			entry.WithError(err).Warn("journal append failed")
		}
	}

	entry.WithFields(logrus.Fields{
		"order_id": orderID,
		"price":    price,
	}).Info("trade executed")

	return rec, true
}

// beginCycle forgets completion state for earlier cycles; idempotence is
// only promised within a single cycle.
func (x *Executor) beginCycle(cycleID string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.completed[cycleID]; ok {
		return
	}
	x.completed = map[string]map[string]bool{cycleID: {}}
}

func (x *Executor) isCompleted(cycleID, symbol string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.completed[cycleID][symbol]
}

func (x *Executor) record(cycleID string, rec models.TradeRecord) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.completed[cycleID][rec.Symbol] = true
	x.trades = append(x.trades, rec)
}

// Trades returns a copy of the in-memory trade log.
func (x *Executor) Trades() []models.TradeRecord {
	x.mu.Lock()
	defer x.mu.Unlock()

	out := make([]models.TradeRecord, len(x.trades))
	copy(out, x.trades)
	return out
}

// TradeCount returns how many trades have been recorded.
func (x *Executor) TradeCount() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.trades)
}

func (x *Executor) logEntry() *logrus.Entry {
	return x.log.WithComponent("executor")
}
