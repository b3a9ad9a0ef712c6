package session

import (
	"sync"

	"github.com/AristidesAI/IBKR-AIHedge/internal/models"
)

// PositionLedger holds the open positions plus the scalar account values.
// The session's dispatch loop is the only writer.
type PositionLedger struct {
	mu        sync.RWMutex
	positions map[string]models.Position
	account   models.AccountState
}

func NewPositionLedger(initialCash float64) *PositionLedger {
	return &PositionLedger{
		positions: make(map[string]models.Position),
		account:   models.AccountState{Cash: initialCash},
	}
}

// upsert replaces the position for a symbol. A zero quantity removes the
// entry entirely, so the ledger never carries flat positions.
func (l *PositionLedger) upsert(pos models.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if pos.Quantity == 0 {
		delete(l.positions, pos.Symbol)
		return
	}
	l.positions[pos.Symbol] = pos
}

func (l *PositionLedger) setCash(v float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.account.Cash = v
}

func (l *PositionLedger) setNetLiquidation(v float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.account.NetLiquidation = v
}

// Get returns the position for one symbol.
func (l *PositionLedger) Get(symbol string) (models.Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.positions[symbol]
	return p, ok
}

// Snapshot returns a point-in-time copy of all open positions.
func (l *PositionLedger) Snapshot() map[string]models.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]models.Position, len(l.positions))
	for sym, p := range l.positions {
		out[sym] = p
	}
	return out
}

func (l *PositionLedger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.positions)
}

// Account returns the last received cash and net liquidation values.
func (l *PositionLedger) Account() models.AccountState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.account
}
