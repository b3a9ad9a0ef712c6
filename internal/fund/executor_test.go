package fund

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/AristidesAI/IBKR-AIHedge/internal/analysis"
	"github.com/AristidesAI/IBKR-AIHedge/internal/logger"
	"github.com/AristidesAI/IBKR-AIHedge/internal/models"
)

type submittedOrder struct {
	symbol   string
	side     models.OrderSide
	quantity int64
}

type fakeBroker struct {
	mu      sync.Mutex
	nextID  int64
	failFor map[string]error
	orders  []submittedOrder
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{nextID: 1, failFor: make(map[string]error)}
}

func (b *fakeBroker) SubmitOrder(symbol string, side models.OrderSide, quantity int64) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failFor[symbol]; err != nil {
		return 0, err
	}
	id := b.nextID
	b.nextID++
	b.orders = append(b.orders, submittedOrder{symbol: symbol, side: side, quantity: quantity})
	return id, nil
}

func (b *fakeBroker) submitted() []submittedOrder {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]submittedOrder, len(b.orders))
	copy(out, b.orders)
	return out
}

func quoteAt(price float64) models.Quote {
	return models.Quote{Last: &price}
}

func TestExecuteBuyDecision(t *testing.T) {
	broker := newFakeBroker()
	x := NewExecutor(broker, nil, logger.Discard())

	decisions := map[string]analysis.Decision{
		"CBA": {Action: "buy", Quantity: 5, Confidence: 80, Reasoning: "strong momentum"},
	}
	quotes := map[string]models.Quote{"CBA": quoteAt(105.5)}

	executed := x.Execute(context.Background(), "c1", decisions, quotes)
	if len(executed) != 1 {
		t.Fatalf("executed = %d trades, want 1", len(executed))
	}

	rec := executed[0]
	if rec.Symbol != "CBA" || rec.Action != "buy" || rec.Quantity != 5 {
		t.Errorf("record = %+v, want buy 5 CBA", rec)
	}
	if rec.Price != 105.5 {
		t.Errorf("price = %f, want the decision-time quote 105.5", rec.Price)
	}

	orders := broker.submitted()
	if len(orders) != 1 || orders[0].side != models.OrderSideBuy || orders[0].quantity != 5 {
		t.Errorf("submitted = %+v, want one BUY of 5", orders)
	}
}

func TestExecuteActionMapping(t *testing.T) {
	broker := newFakeBroker()
	x := NewExecutor(broker, nil, logger.Discard())

	decisions := map[string]analysis.Decision{
		"ANZ": {Action: "short", Quantity: 2},
		"BHP": {Action: "SELL", Quantity: 3},
		"CBA": {Action: "cover", Quantity: 1},
	}

	executed := x.Execute(context.Background(), "c1", decisions, nil)
	if len(executed) != 3 {
		t.Fatalf("executed = %d trades, want 3", len(executed))
	}

	want := map[string]models.OrderSide{
		"ANZ": models.OrderSideSell,
		"BHP": models.OrderSideSell,
		"CBA": models.OrderSideBuy,
	}
	for _, o := range broker.submitted() {
		if o.side != want[o.symbol] {
			t.Errorf("%s submitted as %s, want %s", o.symbol, o.side, want[o.symbol])
		}
	}
}

func TestExecuteSkipsHoldAndZeroQuantity(t *testing.T) {
	broker := newFakeBroker()
	x := NewExecutor(broker, nil, logger.Discard())

	decisions := map[string]analysis.Decision{
		"CBA": {Action: "hold", Quantity: 0},
		"BHP": {Action: "buy", Quantity: 0},
	}

	executed := x.Execute(context.Background(), "c1", decisions, nil)
	if len(executed) != 0 {
		t.Errorf("executed = %d trades, want 0", len(executed))
	}
	if len(broker.submitted()) != 0 {
		t.Error("no orders should reach the broker")
	}
}

func TestExecuteSkipsUnknownAction(t *testing.T) {
	broker := newFakeBroker()
	x := NewExecutor(broker, nil, logger.Discard())

	decisions := map[string]analysis.Decision{
		"CBA": {Action: "hedge", Quantity: 5},
	}

	if executed := x.Execute(context.Background(), "c1", decisions, nil); len(executed) != 0 {
		t.Errorf("unknown action produced %d trades, want 0", len(executed))
	}
}

func TestExecuteFailureIsolation(t *testing.T) {
	broker := newFakeBroker()
	broker.failFor["BHP"] = errors.New("placement failed")
	x := NewExecutor(broker, nil, logger.Discard())

	decisions := map[string]analysis.Decision{
		"BHP": {Action: "buy", Quantity: 2},
		"CBA": {Action: "buy", Quantity: 5},
		"TLS": {Action: "sell", Quantity: 1},
	}

	executed := x.Execute(context.Background(), "c1", decisions, nil)
	if len(executed) != 2 {
		t.Fatalf("executed = %d trades, want 2 (failure must not abort the batch)", len(executed))
	}
	for _, rec := range executed {
		if rec.Symbol == "BHP" {
			t.Error("failed symbol must not produce a trade record")
		}
	}
}

func TestExecuteIdempotentWithinCycle(t *testing.T) {
	broker := newFakeBroker()
	x := NewExecutor(broker, nil, logger.Discard())

	decisions := map[string]analysis.Decision{
		"CBA": {Action: "buy", Quantity: 5},
	}

	x.Execute(context.Background(), "c1", decisions, nil)
	executed := x.Execute(context.Background(), "c1", decisions, nil)

	if len(executed) != 0 {
		t.Errorf("re-run produced %d trades, want 0 (already executed this cycle)", len(executed))
	}
	if got := len(broker.submitted()); got != 1 {
		t.Errorf("broker saw %d orders, want 1", got)
	}

	// A fresh cycle resets completion state.
	if executed := x.Execute(context.Background(), "c2", decisions, nil); len(executed) != 1 {
		t.Errorf("new cycle produced %d trades, want 1", len(executed))
	}
}

func TestExecuteRetryAfterPartialFailure(t *testing.T) {
	broker := newFakeBroker()
	broker.failFor["BHP"] = errors.New("placement failed")
	x := NewExecutor(broker, nil, logger.Discard())

	decisions := map[string]analysis.Decision{
		"BHP": {Action: "buy", Quantity: 2},
		"CBA": {Action: "buy", Quantity: 5},
	}

	x.Execute(context.Background(), "c1", decisions, nil)

	// The retry resubmits only the symbol that failed.
	broker.mu.Lock()
	delete(broker.failFor, "BHP")
	broker.mu.Unlock()

	executed := x.Execute(context.Background(), "c1", decisions, nil)
	if len(executed) != 1 || executed[0].Symbol != "BHP" {
		t.Fatalf("retry executed = %+v, want only BHP", executed)
	}
	if got := len(broker.submitted()); got != 2 {
		t.Errorf("broker saw %d orders, want 2", got)
	}
}

func TestExecuteMissingQuoteRecordsZeroPrice(t *testing.T) {
	broker := newFakeBroker()
	x := NewExecutor(broker, nil, logger.Discard())

	decisions := map[string]analysis.Decision{
		"CBA": {Action: "buy", Quantity: 5},
	}

	executed := x.Execute(context.Background(), "c1", decisions, map[string]models.Quote{})
	if len(executed) != 1 || executed[0].Price != 0 {
		t.Errorf("executed = %+v, want one trade at price 0", executed)
	}
}

func TestTradeCount(t *testing.T) {
	broker := newFakeBroker()
	x := NewExecutor(broker, nil, logger.Discard())

	x.Execute(context.Background(), "c1", map[string]analysis.Decision{
		"CBA": {Action: "buy", Quantity: 1},
		"BHP": {Action: "sell", Quantity: 2},
	}, nil)

	if x.TradeCount() != 2 {
		t.Errorf("TradeCount = %d, want 2", x.TradeCount())
	}
	if got := x.Trades(); len(got) != 2 {
		t.Errorf("Trades = %d records, want 2", len(got))
	}
}
