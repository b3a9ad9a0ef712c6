package gateway

import (
	"github.com/AristidesAI/IBKR-AIHedge/internal/models"
)

func (c *Client) SubscribeMarketData(reqID int, inst models.Instrument) error {
	return c.writeJSON(marketDataRequest{
		Op:       "subscribe_market_data",
		ReqID:    reqID,
		Symbol:   inst.Symbol,
		Exchange: inst.Exchange,
		Currency: inst.Currency,
		SecType:  inst.SecType,
	})
}

func (c *Client) SubscribeAccountUpdates(subscribe bool) error {
	return c.writeJSON(accountRequest{
		Op:        "subscribe_account",
		Subscribe: subscribe,
	})
}

func (c *Client) PlaceOrder(order models.Order, inst models.Instrument) error {
	return c.writeJSON(orderRequest{
		Op:        "place_order",
		OrderID:   order.ID,
		Symbol:    inst.Symbol,
		Exchange:  inst.Exchange,
		Currency:  inst.Currency,
		SecType:   inst.SecType,
		Side:      string(order.Side),
		Quantity:  order.Quantity,
		OrderType: string(order.Type),
		TIF:       "DAY",
	})
}
