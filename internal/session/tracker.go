package session

import (
	"sync"
	"time"

	"github.com/AristidesAI/IBKR-AIHedge/internal/broker"
	"github.com/AristidesAI/IBKR-AIHedge/internal/models"
)

// OrderTracker allocates order identifiers and advances order state on
// broker callbacks. Identifiers are strictly increasing from the
// broker-assigned seed and never reused. Terminal orders leave the pending
// set but stay in the completed log.
type OrderTracker struct {
	mu        sync.Mutex
	nextID    int64
	pending   map[int64]models.Order
	completed []models.Order
}

func NewOrderTracker() *OrderTracker {
	return &OrderTracker{
		nextID:  1,
		pending: make(map[int64]models.Order),
	}
}

// seed moves the allocation cursor to the broker-assigned starting
// identifier. Never moves it backwards.
func (t *OrderTracker) seed(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id > t.nextID {
		t.nextID = id
	}
}

// create allocates the next identifier and registers the order as
// SUBMITTED in one critical section, so no callback can observe an
// identifier before its tracker entry exists.
func (t *OrderTracker) create(symbol string, side models.OrderSide, quantity int64) models.Order {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	order := models.Order{
		ID:         t.nextID,
		Symbol:     symbol,
		Side:       side,
		Type:       models.OrderTypeMarket,
		Quantity:   quantity,
		Status:     models.OrderStatusSubmitted,
		CreateTime: now,
		UpdateTime: now,
	}
	t.nextID++
	t.pending[order.ID] = order
	return order
}

// fail force-rejects a pending order whose placement never reached the
// wire. No-op for unknown or already-terminal identifiers.
func (t *OrderTracker) fail(id int64) (models.Order, bool) {
	return t.advance(broker.OrderStatusEvent{OrderID: id, Status: models.OrderStatusRejected})
}

// advance applies one status callback against the state machine:
//
//	SUBMITTED → WORKING | REJECTED
//	WORKING   → WORKING (partial fill) | FILLED | CANCELLED | REJECTED
//
// A fill or cancel arriving while still SUBMITTED counts as an implicit
// ack. Callbacks for unknown identifiers (including anything after a
// terminal state) are ignored, not errors.
func (t *OrderTracker) advance(ev broker.OrderStatusEvent) (models.Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	order, ok := t.pending[ev.OrderID]
	if !ok {
		return models.Order{}, false
	}

	switch order.Status {
	case models.OrderStatusSubmitted, models.OrderStatusWorking:
	default:
		return models.Order{}, false
	}

	next := ev.Status
	order.Status = next
	if ev.Filled > 0 {
		order.FilledQty = ev.Filled
	}
	if ev.AvgFillPrice > 0 {
		order.AvgFillPrice = ev.AvgFillPrice
	}
	order.UpdateTime = time.Now()

	if next.IsTerminal() {
		delete(t.pending, ev.OrderID)
		t.completed = append(t.completed, order)
	} else {
		t.pending[ev.OrderID] = order
	}

	return order, true
}

// Get returns a pending order by identifier.
func (t *OrderTracker) Get(id int64) (models.Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.pending[id]
	return o, ok
}

// PendingCount returns the number of orders not yet in a terminal state.
func (t *OrderTracker) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Pending returns a point-in-time copy of the working set.
func (t *OrderTracker) Pending() map[int64]models.Order {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[int64]models.Order, len(t.pending))
	for id, o := range t.pending {
		out[id] = o
	}
	return out
}

// Completed returns a copy of the terminal-order log in completion order.
func (t *OrderTracker) Completed() []models.Order {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.Order, len(t.completed))
	copy(out, t.completed)
	return out
}
