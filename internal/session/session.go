// Package session owns the broker connection and the shared account state
// it feeds: quotes, positions, cash and pending orders. Inbound gateway
// events are applied by a single dispatch goroutine; everything else reads
// through the thread-safe containers.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AristidesAI/IBKR-AIHedge/internal/broker"
	"github.com/AristidesAI/IBKR-AIHedge/internal/logger"
	"github.com/AristidesAI/IBKR-AIHedge/internal/models"

	"github.com/sirupsen/logrus"
)

// ErrNotConnected is returned by synchronous calls after the connection is
// lost or before Connect succeeds. Callers get a fast failure, never a hang.
var ErrNotConnected = errors.New("session: not connected to broker gateway")

type Config struct {
	Currency string
	Exchange string
	// InitialCash seeds the ledger until the first account update arrives.
	InitialCash float64
}

type Session struct {
	cfg       Config
	transport broker.Transport
	log       *logger.Logger

	quotes  *QuoteCache
	ledger  *PositionLedger
	tracker *OrderTracker

	connected atomic.Bool
	readyCh   chan struct{}
	readyOnce sync.Once

	instMu      sync.Mutex
	instruments map[string]models.Instrument
	nextReqID   atomic.Int64

	dispatchDone chan struct{}
}

func New(cfg Config, transport broker.Transport, log *logger.Logger) *Session {
	return &Session{
		cfg:          cfg,
		transport:    transport,
		log:          log,
		quotes:       NewQuoteCache(),
		ledger:       NewPositionLedger(cfg.InitialCash),
		tracker:      NewOrderTracker(),
		readyCh:      make(chan struct{}),
		instruments:  make(map[string]models.Instrument),
		dispatchDone: make(chan struct{}),
	}
}

// Connect dials the gateway and blocks until the broker reports ready (the
// next-valid-order-id handshake) or the timeout elapses. On success the
// session subscribes to account and position updates.
func (s *Session) Connect(ctx context.Context, timeout time.Duration) error {
	if err := s.transport.Dial(ctx); err != nil {
		return err
	}

	go s.dispatch()

	select {
	case <-s.readyCh:
	case <-time.After(timeout):
		_ = s.transport.Close()
		return fmt.Errorf("session: no ready handshake within %s", timeout)
	case <-ctx.Done():
		_ = s.transport.Close()
		return ctx.Err()
	}

	s.connected.Store(true)

	if err := s.transport.SubscribeAccountUpdates(true); err != nil {
		_ = s.transport.Close()
		s.connected.Store(false)
		return fmt.Errorf("subscribe account updates: %w", err)
	}

	s.logEntry().Info("connected to broker")
	return nil
}

// Close tears down the connection. Idempotent; in-flight dispatch drains
// and exits once the transport closes its event channel.
func (s *Session) Close() error {
	s.connected.Store(false)
	return s.transport.Close()
}

// Connected reports whether the session currently holds a live connection.
func (s *Session) Connected() bool {
	return s.connected.Load()
}

// dispatch is the sole writer of the state containers. Events arrive in
// delivery order and are processed one at a time; a bad event is logged and
// skipped, never allowed to take the loop down.
func (s *Session) dispatch() {
	defer close(s.dispatchDone)

	for event := range s.transport.Events() {
		switch event.Type {
		case broker.EventTypeReady:
			if event.Ready != nil {
				s.handleReady(*event.Ready)
			}
		case broker.EventTypeTick:
			if event.Tick != nil {
				s.handleTick(*event.Tick)
			}
		case broker.EventTypeOrderStatus:
			if event.OrderStatus != nil {
				s.handleOrderStatus(*event.OrderStatus)
			}
		case broker.EventTypePosition:
			if event.Position != nil {
				s.handlePosition(*event.Position)
			}
		case broker.EventTypeAccountValue:
			if event.AccountValue != nil {
				s.handleAccountValue(*event.AccountValue)
			}
		case broker.EventTypeError:
			if event.Err != nil {
				s.handleError(*event.Err)
			}
		case broker.EventTypeDisconnected:
			s.connected.Store(false)
			s.logEntry().Warn("broker connection lost")
		}
	}

	s.connected.Store(false)
	s.logEntry().Info("event dispatch stopped")
}

func (s *Session) handleReady(ev broker.ReadyEvent) {
	s.tracker.seed(ev.NextOrderID)
	s.readyOnce.Do(func() { close(s.readyCh) })
	s.logEntry().WithField("next_order_id", ev.NextOrderID).Info("broker ready")
}

func (s *Session) handleTick(ev broker.TickEvent) {
	symbol, ok := s.quotes.applyTick(ev.ReqID, ev.Field, ev.Price)
	if !ok {
		s.logEntry().WithField("req_id", ev.ReqID).Debug("tick for unknown request")
		return
	}
	s.log.WithFields(logrus.Fields{
		"component": "session",
		"symbol":    symbol,
		"field":     string(ev.Field),
		"price":     ev.Price,
	}).Debug("tick")
}

func (s *Session) handleOrderStatus(ev broker.OrderStatusEvent) {
	order, ok := s.tracker.advance(ev)
	if !ok {
		s.logEntry().WithFields(logrus.Fields{
			"order_id": ev.OrderID,
			"status":   string(ev.Status),
		}).Debug("ignoring order status for unknown or settled order")
		return
	}

	entry := s.logEntry().WithFields(logrus.Fields{
		"order_id":  order.ID,
		"symbol":    order.Symbol,
		"status":    string(order.Status),
		"filled":    ev.Filled,
		"remaining": ev.Remaining,
	})

	switch order.Status {
	case models.OrderStatusFilled:
		entry.WithField("avg_fill_price", order.AvgFillPrice).Info("order filled")
	case models.OrderStatusCancelled:
		entry.Info("order cancelled")
	case models.OrderStatusRejected:
		entry.Warn("order rejected")
	default:
		entry.Debug("order status")
	}
}

func (s *Session) handlePosition(ev broker.PositionEvent) {
	s.ledger.upsert(models.Position{
		Symbol:        ev.Symbol,
		Quantity:      ev.Quantity,
		AvgCost:       ev.AvgCost,
		MarketValue:   ev.MarketValue,
		UnrealizedPnL: ev.UnrealizedPnL,
	})
	s.logEntry().WithFields(logrus.Fields{
		"symbol":   ev.Symbol,
		"quantity": ev.Quantity,
		"avg_cost": ev.AvgCost,
	}).Debug("position update")
}

func (s *Session) handleAccountValue(ev broker.AccountValueEvent) {
	if ev.Currency != s.cfg.Currency {
		return
	}
	switch ev.Key {
	case broker.AccountKeyCash:
		s.ledger.setCash(ev.Value)
	case broker.AccountKeyNetLiquidation:
		s.ledger.setNetLiquidation(ev.Value)
	}
}

// Informational gateway codes: market data farm connection notices.
func isInfoCode(code int) bool {
	switch code {
	case 2104, 2106, 2158:
		return true
	}
	return false
}

func (s *Session) handleError(ev broker.ErrorEvent) {
	entry := s.logEntry().WithFields(logrus.Fields{
		"code":   ev.Code,
		"req_id": ev.ReqID,
	})
	if isInfoCode(ev.Code) {
		entry.Info(ev.Message)
		return
	}
	entry.Error(ev.Message)
}

// ResolveInstrument returns the memoized instrument descriptor for a
// symbol, constructing it on first use.
func (s *Session) ResolveInstrument(symbol string) models.Instrument {
	s.instMu.Lock()
	defer s.instMu.Unlock()

	if inst, ok := s.instruments[symbol]; ok {
		return inst
	}
	inst := models.Instrument{
		Symbol:   symbol,
		Exchange: s.cfg.Exchange,
		Currency: s.cfg.Currency,
		SecType:  "STK",
	}
	s.instruments[symbol] = inst
	return inst
}

// RequestQuotes subscribes to market data for the symbol set and blocks
// until every symbol has a last price or the timeout elapses. Partial
// results are returned as-is; missing fields mean "no data", not failure.
func (s *Session) RequestQuotes(ctx context.Context, symbols []string, timeout time.Duration) (map[string]models.Quote, error) {
	if !s.Connected() {
		return nil, ErrNotConnected
	}

	s.logEntry().WithField("symbols", symbols).Info("requesting market data")

	for _, symbol := range symbols {
		inst := s.ResolveInstrument(symbol)
		reqID := int(s.nextReqID.Add(1))
		s.quotes.subscribe(reqID, symbol)
		if err := s.transport.SubscribeMarketData(reqID, inst); err != nil {
			return nil, fmt.Errorf("subscribe market data for %s: %w", symbol, err)
		}
	}

	ready := s.quotes.notifyReady(symbols)

	select {
	case <-ready:
	case <-time.After(timeout):
		var missing []string
		for _, symbol := range symbols {
			if q, _ := s.quotes.Get(symbol); !q.HasLast() {
				missing = append(missing, symbol)
			}
		}
		s.logEntry().WithField("missing", missing).Warn("quote wait timed out, proceeding with partial data")
	case <-ctx.Done():
		return s.quotes.SnapshotFor(symbols), ctx.Err()
	}

	return s.quotes.SnapshotFor(symbols), nil
}

// SubmitOrder allocates the next order identifier, registers the order as
// SUBMITTED and places it. Identifier allocation and tracker insertion are
// one atomic step, so a status callback can never race the registration.
func (s *Session) SubmitOrder(symbol string, side models.OrderSide, quantity int64) (int64, error) {
	if !s.Connected() {
		return 0, ErrNotConnected
	}
	if quantity <= 0 {
		return 0, fmt.Errorf("submit order: quantity must be positive, got %d", quantity)
	}

	inst := s.ResolveInstrument(symbol)
	order := s.tracker.create(symbol, side, quantity)

	if err := s.transport.PlaceOrder(order, inst); err != nil {
		s.tracker.fail(order.ID)
		s.log.WithOrderID(order.ID).WithError(err).Error("order placement failed")
		return 0, fmt.Errorf("place order %d: %w", order.ID, err)
	}

	s.logEntry().WithFields(logrus.Fields{
		"order_id": order.ID,
		"symbol":   symbol,
		"side":     string(side),
		"quantity": quantity,
	}).Info("order submitted")

	return order.ID, nil
}

// PositionSnapshot returns a point-in-time copy of all open positions.
func (s *Session) PositionSnapshot() map[string]models.Position {
	return s.ledger.Snapshot()
}

// Account returns the last received cash and net liquidation values.
func (s *Session) Account() models.AccountState {
	return s.ledger.Account()
}

// PendingOrderCount returns the number of orders not yet terminal.
func (s *Session) PendingOrderCount() int {
	return s.tracker.PendingCount()
}

// Quotes exposes the quote cache for read access.
func (s *Session) Quotes() *QuoteCache {
	return s.quotes
}

// Positions exposes the position ledger for read access.
func (s *Session) Positions() *PositionLedger {
	return s.ledger
}

// Orders exposes the order tracker for read access.
func (s *Session) Orders() *OrderTracker {
	return s.tracker
}

func (s *Session) logEntry() *logrus.Entry {
	return s.log.WithComponent("session")
}
