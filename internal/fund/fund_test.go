package fund

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AristidesAI/IBKR-AIHedge/internal/analysis"
	"github.com/AristidesAI/IBKR-AIHedge/internal/config"
	"github.com/AristidesAI/IBKR-AIHedge/internal/logger"
	"github.com/AristidesAI/IBKR-AIHedge/internal/models"
)

type fakeBrokerage struct {
	*fakeBroker
	mu        sync.Mutex
	quotes    map[string]models.Quote
	quotesErr error
	positions map[string]models.Position
	account   models.AccountState
}

func (b *fakeBrokerage) RequestQuotes(context.Context, []string, time.Duration) (map[string]models.Quote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.quotes, b.quotesErr
}

func (b *fakeBrokerage) PositionSnapshot() map[string]models.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]models.Position, len(b.positions))
	for k, v := range b.positions {
		out[k] = v
	}
	return out
}

func (b *fakeBrokerage) Account() models.AccountState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.account
}

func (b *fakeBrokerage) PendingOrderCount() int { return 0 }

func testConfig() *config.Config {
	return &config.Config{
		Broker: config.BrokerConfig{QuoteTimeout: time.Second},
		Trading: config.TradingConfig{
			Currency:    "AUD",
			InitialCash: 200,
			Watchlist:   []string{"CBA", "BHP"},
			WindowDays:  30,
		},
	}
}

func newFund(broker *fakeBrokerage, analyzer analysis.Analyzer) *Fund {
	log := logger.Discard()
	return New(testConfig(), broker, analyzer, NewExecutor(broker, nil, log), log)
}

func TestRunCycleExecutesDecisions(t *testing.T) {
	broker := &fakeBrokerage{
		fakeBroker: newFakeBroker(),
		quotes: map[string]models.Quote{
			"CBA": quoteAt(105.5),
			"BHP": quoteAt(40.0),
		},
		account: models.AccountState{Cash: 200},
	}

	var analyzedSymbols []string
	analyzer := analysis.Func(func(_ context.Context, snap analysis.Snapshot, symbols []string, window analysis.Window) (map[string]analysis.Decision, error) {
		analyzedSymbols = symbols
		if snap.Cash != 200 {
			t.Errorf("snapshot cash = %f, want 200", snap.Cash)
		}
		if !window.Start.Equal(window.End.AddDate(0, 0, -30)) {
			t.Errorf("window = %s .. %s, want a 30 day span", window.Start, window.End)
		}
		return map[string]analysis.Decision{
			"CBA": {Action: "buy", Quantity: 5},
		}, nil
	})

	f := newFund(broker, analyzer)
	f.RunCycle(context.Background())

	if len(analyzedSymbols) != 2 {
		t.Errorf("analyzer saw %v, want both watchlist symbols", analyzedSymbols)
	}
	orders := broker.submitted()
	if len(orders) != 1 || orders[0].symbol != "CBA" {
		t.Fatalf("submitted = %+v, want one CBA order", orders)
	}
}

func TestRunCycleExcludesSymbolsWithoutQuotes(t *testing.T) {
	broker := &fakeBrokerage{
		fakeBroker: newFakeBroker(),
		quotes: map[string]models.Quote{
			"CBA": quoteAt(105.5),
			// BHP never ticked.
		},
	}

	analyzer := analysis.Func(func(_ context.Context, _ analysis.Snapshot, symbols []string, _ analysis.Window) (map[string]analysis.Decision, error) {
		if len(symbols) != 1 || symbols[0] != "CBA" {
			t.Errorf("analyzer saw %v, want only CBA", symbols)
		}
		return nil, nil
	})

	newFund(broker, analyzer).RunCycle(context.Background())
}

func TestRunCycleSkipsWhenNoMarketData(t *testing.T) {
	broker := &fakeBrokerage{fakeBroker: newFakeBroker(), quotes: map[string]models.Quote{}}

	called := false
	analyzer := analysis.Func(func(context.Context, analysis.Snapshot, []string, analysis.Window) (map[string]analysis.Decision, error) {
		called = true
		return nil, nil
	})

	newFund(broker, analyzer).RunCycle(context.Background())
	if called {
		t.Error("analyzer must not run without any market data")
	}
}

func TestRunCycleSkipsOnQuoteError(t *testing.T) {
	broker := &fakeBrokerage{fakeBroker: newFakeBroker(), quotesErr: errors.New("not connected")}

	analyzer := analysis.Func(func(context.Context, analysis.Snapshot, []string, analysis.Window) (map[string]analysis.Decision, error) {
		t.Error("analyzer must not run when market data fails")
		return nil, nil
	})

	newFund(broker, analyzer).RunCycle(context.Background())
	if len(broker.submitted()) != 0 {
		t.Error("no orders expected when the cycle is skipped")
	}
}

func TestRunCycleSkipsOnAnalysisError(t *testing.T) {
	broker := &fakeBrokerage{
		fakeBroker: newFakeBroker(),
		quotes:     map[string]models.Quote{"CBA": quoteAt(100), "BHP": quoteAt(40)},
	}

	analyzer := analysis.Func(func(context.Context, analysis.Snapshot, []string, analysis.Window) (map[string]analysis.Decision, error) {
		return nil, errors.New("engine unavailable")
	})

	newFund(broker, analyzer).RunCycle(context.Background())
	if len(broker.submitted()) != 0 {
		t.Error("no orders expected when analysis fails")
	}
}

func TestRunCycleContainsAnalyzerPanic(t *testing.T) {
	broker := &fakeBrokerage{
		fakeBroker: newFakeBroker(),
		quotes:     map[string]models.Quote{"CBA": quoteAt(100), "BHP": quoteAt(40)},
	}

	analyzer := analysis.Func(func(context.Context, analysis.Snapshot, []string, analysis.Window) (map[string]analysis.Decision, error) {
		panic("analyzer blew up")
	})

	// Must not propagate; the scheduler keeps firing future cycles.
	newFund(broker, analyzer).RunCycle(context.Background())
}
