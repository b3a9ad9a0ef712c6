package models

import "time"

type OrderSide string
type OrderType string
type OrderStatus string
type TickField string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"

	OrderTypeMarket OrderType = "MKT"

	OrderStatusNew       OrderStatus = "NEW"
	OrderStatusSubmitted OrderStatus = "SUBMITTED"
	OrderStatusWorking   OrderStatus = "WORKING"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"

	TickFieldBid   TickField = "bid"
	TickFieldAsk   TickField = "ask"
	TickFieldLast  TickField = "last"
	TickFieldClose TickField = "close"
)

// IsTerminal reports whether no further transitions are accepted for an
// order in this status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled || s == OrderStatusRejected
}

// Instrument is the broker-side identity descriptor for a tradable symbol.
// Immutable once constructed; the session caches one per symbol.
type Instrument struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
	SecType  string `json:"sec_type"`
}

// Quote holds the last-known tick fields for one instrument. Fields are nil
// until the first tick of that kind arrives.
type Quote struct {
	Bid   *float64 `json:"bid,omitempty"`
	Ask   *float64 `json:"ask,omitempty"`
	Last  *float64 `json:"last,omitempty"`
	Close *float64 `json:"close,omitempty"`
}

// HasLast reports whether at least one last-price tick has been received.
func (q Quote) HasLast() bool {
	return q.Last != nil
}

// Position is one open position. Quantity is signed: positive long,
// negative short.
type Position struct {
	Symbol        string  `json:"symbol"`
	Quantity      int64   `json:"quantity"`
	AvgCost       float64 `json:"avg_cost"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// AccountState carries the scalar account values in the configured base
// currency. Values are "last received", never invalidated between updates.
type AccountState struct {
	Cash           float64 `json:"cash"`
	NetLiquidation float64 `json:"net_liquidation"`
}

type Order struct {
	ID           int64       `json:"id"`
	Symbol       string      `json:"symbol"`
	Side         OrderSide   `json:"side"`
	Type         OrderType   `json:"type"`
	Quantity     int64       `json:"quantity"`
	FilledQty    float64     `json:"filled_qty"`
	AvgFillPrice float64     `json:"avg_fill_price"`
	Status       OrderStatus `json:"status"`
	CreateTime   time.Time   `json:"create_time"`
	UpdateTime   time.Time   `json:"update_time"`
}

// TradeRecord is one append-only trade log entry. Price is the last-known
// quote at submission time, which may differ from the eventual fill price.
type TradeRecord struct {
	CycleID   string    `json:"cycle_id"`
	Symbol    string    `json:"symbol"`
	Action    string    `json:"action"`
	Quantity  int64     `json:"quantity"`
	Price     float64   `json:"price"`
	OrderID   int64     `json:"order_id"`
	Timestamp time.Time `json:"timestamp"`
}
