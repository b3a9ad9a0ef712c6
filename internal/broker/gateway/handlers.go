package gateway

import (
	"encoding/json"
	"strconv"

	"github.com/AristidesAI/IBKR-AIHedge/internal/broker"
	"github.com/AristidesAI/IBKR-AIHedge/internal/models"
)

// parseMessage maps one inbound frame to a session event. Unknown types and
// malformed payloads are logged and dropped; the stream keeps going.
func (c *Client) parseMessage(msg Message) (broker.Event, bool) {
	switch msg.Type {
	case "next_valid_id":
		return c.parseReady(msg)
	case "tick":
		return c.parseTick(msg)
	case "order_status":
		return c.parseOrderStatus(msg)
	case "portfolio":
		return c.parsePortfolio(msg)
	case "account_value":
		return c.parseAccountValue(msg)
	case "error":
		return c.parseError(msg)
	default:
		c.logEntry().WithField("type", msg.Type).Debug("ignoring gateway frame")
		return broker.Event{}, false
	}
}

func (c *Client) parseReady(msg Message) (broker.Event, bool) {
	var data struct {
		OrderID int64 `json:"order_id"`
	}
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.logEntry().WithError(err).Warn("bad next_valid_id frame")
		return broker.Event{}, false
	}
	return broker.Event{
		Type:  broker.EventTypeReady,
		Ready: &broker.ReadyEvent{NextOrderID: data.OrderID},
	}, true
}

func (c *Client) parseTick(msg Message) (broker.Event, bool) {
	var data struct {
		ReqID int     `json:"req_id"`
		Field string  `json:"field"`
		Price float64 `json:"price"`
	}
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.logEntry().WithError(err).Warn("bad tick frame")
		return broker.Event{}, false
	}

	field := models.TickField(data.Field)
	switch field {
	case models.TickFieldBid, models.TickFieldAsk, models.TickFieldLast, models.TickFieldClose:
	default:
		return broker.Event{}, false
	}

	return broker.Event{
		Type: broker.EventTypeTick,
		Tick: &broker.TickEvent{ReqID: data.ReqID, Field: field, Price: data.Price},
	}, true
}

func (c *Client) parseOrderStatus(msg Message) (broker.Event, bool) {
	var data struct {
		OrderID      int64   `json:"order_id"`
		Status       string  `json:"status"`
		Filled       float64 `json:"filled"`
		Remaining    float64 `json:"remaining"`
		AvgFillPrice float64 `json:"avg_fill_price"`
	}
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.logEntry().WithError(err).Warn("bad order_status frame")
		return broker.Event{}, false
	}

	status, ok := mapOrderStatus(data.Status)
	if !ok {
		c.logEntry().WithFields(map[string]interface{}{
			"order_id": data.OrderID,
			"status":   data.Status,
		}).Debug("ignoring order status")
		return broker.Event{}, false
	}

	return broker.Event{
		Type: broker.EventTypeOrderStatus,
		OrderStatus: &broker.OrderStatusEvent{
			OrderID:      data.OrderID,
			Status:       status,
			Filled:       data.Filled,
			Remaining:    data.Remaining,
			AvgFillPrice: data.AvgFillPrice,
		},
	}, true
}

// mapOrderStatus translates gateway status strings to the order state
// machine. Transitional broker states that carry no lifecycle information
// (PendingSubmit, PendingCancel) are dropped.
func mapOrderStatus(s string) (models.OrderStatus, bool) {
	switch s {
	case "PreSubmitted", "Submitted":
		return models.OrderStatusWorking, true
	case "Filled":
		return models.OrderStatusFilled, true
	case "Cancelled", "ApiCancelled":
		return models.OrderStatusCancelled, true
	case "Rejected", "Inactive":
		return models.OrderStatusRejected, true
	default:
		return "", false
	}
}

func (c *Client) parsePortfolio(msg Message) (broker.Event, bool) {
	var data struct {
		Symbol        string  `json:"symbol"`
		Position      int64   `json:"position"`
		AvgCost       float64 `json:"avg_cost"`
		MarketValue   float64 `json:"market_value"`
		UnrealizedPnL float64 `json:"unrealized_pnl"`
	}
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.logEntry().WithError(err).Warn("bad portfolio frame")
		return broker.Event{}, false
	}
	return broker.Event{
		Type: broker.EventTypePosition,
		Position: &broker.PositionEvent{
			Symbol:        data.Symbol,
			Quantity:      data.Position,
			AvgCost:       data.AvgCost,
			MarketValue:   data.MarketValue,
			UnrealizedPnL: data.UnrealizedPnL,
		},
	}, true
}

func (c *Client) parseAccountValue(msg Message) (broker.Event, bool) {
	var data struct {
		Key      string `json:"key"`
		Value    string `json:"value"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.logEntry().WithError(err).Warn("bad account_value frame")
		return broker.Event{}, false
	}

	value, err := strconv.ParseFloat(data.Value, 64)
	if err != nil {
		c.logEntry().WithFields(map[string]interface{}{
			"key":   data.Key,
			"value": data.Value,
		}).Warn("non-numeric account value")
		return broker.Event{}, false
	}

	return broker.Event{
		Type: broker.EventTypeAccountValue,
		AccountValue: &broker.AccountValueEvent{
			Key:      data.Key,
			Value:    value,
			Currency: data.Currency,
		},
	}, true
}

func (c *Client) parseError(msg Message) (broker.Event, bool) {
	var data struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		ReqID   int    `json:"req_id"`
	}
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.logEntry().WithError(err).Warn("bad error frame")
		return broker.Event{}, false
	}
	return broker.Event{
		Type: broker.EventTypeError,
		Err:  &broker.ErrorEvent{Code: data.Code, Message: data.Message, ReqID: data.ReqID},
	}, true
}
