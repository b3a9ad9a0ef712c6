package session

import (
	"sync"

	"github.com/AristidesAI/IBKR-AIHedge/internal/models"
)

// QuoteCache is the thread-safe symbol → last-known-tick mapping. The
// session's dispatch loop is the only writer; any goroutine may read.
type QuoteCache struct {
	mu       sync.RWMutex
	quotes   map[string]models.Quote
	requests map[int]string
	waiters  []*quoteWaiter
}

type quoteWaiter struct {
	symbols []string
	ch      chan struct{}
	closed  bool
}

func NewQuoteCache() *QuoteCache {
	return &QuoteCache{
		quotes:   make(map[string]models.Quote),
		requests: make(map[int]string),
	}
}

// subscribe registers the request index used to demultiplex inbound ticks
// back to symbol, and creates the (empty) cache entry.
func (c *QuoteCache) subscribe(reqID int, symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests[reqID] = symbol
	if _, ok := c.quotes[symbol]; !ok {
		c.quotes[symbol] = models.Quote{}
	}
}

// applyTick records one tick and wakes any waiter whose symbol set became
// fully ready. Returns the resolved symbol, or ok=false for an unknown
// request index.
func (c *QuoteCache) applyTick(reqID int, field models.TickField, price float64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	symbol, ok := c.requests[reqID]
	if !ok {
		return "", false
	}

	q := c.quotes[symbol]
	p := price
	switch field {
	case models.TickFieldBid:
		q.Bid = &p
	case models.TickFieldAsk:
		q.Ask = &p
	case models.TickFieldLast:
		q.Last = &p
	case models.TickFieldClose:
		q.Close = &p
	}
	c.quotes[symbol] = q

	if field == models.TickFieldLast {
		c.wakeWaiters()
	}

	return symbol, true
}

func (c *QuoteCache) wakeWaiters() {
	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if c.readyLocked(w.symbols) {
			if !w.closed {
				close(w.ch)
				w.closed = true
			}
			continue
		}
		remaining = append(remaining, w)
	}
	c.waiters = remaining
}

// Ready reports whether every symbol has received at least one last tick.
func (c *QuoteCache) Ready(symbols []string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.readyLocked(symbols)
}

func (c *QuoteCache) readyLocked(symbols []string) bool {
	for _, s := range symbols {
		if !c.quotes[s].HasLast() {
			return false
		}
	}
	return true
}

// notifyReady returns a channel closed once every symbol has a last price.
// Already-satisfied sets get an already-closed channel.
func (c *QuoteCache) notifyReady(symbols []string) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan struct{})
	if c.readyLocked(symbols) {
		close(ch)
		return ch
	}
	c.waiters = append(c.waiters, &quoteWaiter{symbols: symbols, ch: ch})
	return ch
}

// Get returns the quote for one symbol.
func (c *QuoteCache) Get(symbol string) (models.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[symbol]
	return q, ok
}

// Snapshot returns a point-in-time copy of the whole cache.
func (c *QuoteCache) Snapshot() map[string]models.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]models.Quote, len(c.quotes))
	for sym, q := range c.quotes {
		out[sym] = q
	}
	return out
}

// SnapshotFor copies the entries for the given symbols. Symbols that never
// received any tick still appear with all fields unset.
func (c *QuoteCache) SnapshotFor(symbols []string) map[string]models.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]models.Quote, len(symbols))
	for _, sym := range symbols {
		if q, ok := c.quotes[sym]; ok {
			out[sym] = q
		}
	}
	return out
}
