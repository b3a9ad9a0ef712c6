// Package broker defines the inbound event model pushed by the broker
// gateway and the transport interface the session consumes it through.
package broker

import (
	"context"

	"github.com/AristidesAI/IBKR-AIHedge/internal/models"
)

type EventType string

const (
	EventTypeReady        EventType = "Ready"
	EventTypeTick         EventType = "Tick"
	EventTypeOrderStatus  EventType = "OrderStatus"
	EventTypePosition     EventType = "Position"
	EventTypeAccountValue EventType = "AccountValue"
	EventTypeError        EventType = "Error"
	EventTypeDisconnected EventType = "Disconnected"
)

// Event is one asynchronous push from the gateway. Exactly one of the
// payload pointers matching Type is set.
type Event struct {
	Type         EventType
	Ready        *ReadyEvent
	Tick         *TickEvent
	OrderStatus  *OrderStatusEvent
	Position     *PositionEvent
	AccountValue *AccountValueEvent
	Err          *ErrorEvent
}

// ReadyEvent is the initial handshake carrying the broker-assigned seed for
// order identifier allocation.
type ReadyEvent struct {
	NextOrderID int64
}

// TickEvent is one price update, demultiplexed back to the originating
// symbol via the request index used at subscription time.
type TickEvent struct {
	ReqID int
	Field models.TickField
	Price float64
}

type OrderStatusEvent struct {
	OrderID      int64
	Status       models.OrderStatus
	Filled       float64
	Remaining    float64
	AvgFillPrice float64
}

// PositionEvent carries the full replacement state for one symbol. A zero
// Quantity means the position is gone.
type PositionEvent struct {
	Symbol        string
	Quantity      int64
	AvgCost       float64
	MarketValue   float64
	UnrealizedPnL float64
}

type AccountValueEvent struct {
	Key      string
	Value    float64
	Currency string
}

type ErrorEvent struct {
	Code    int
	Message string
	ReqID   int
}

// Account value keys pushed by the gateway.
const (
	AccountKeyCash           = "CashBalance"
	AccountKeyNetLiquidation = "NetLiquidation"
)

// Transport is the wire connection to the broker gateway. Implementations
// deliver pushes on the Events channel in arrival order and close it when
// the connection is gone.
type Transport interface {
	Dial(ctx context.Context) error
	Close() error
	Events() <-chan Event

	SubscribeMarketData(reqID int, inst models.Instrument) error
	SubscribeAccountUpdates(subscribe bool) error
	PlaceOrder(order models.Order, inst models.Instrument) error
}
