package gateway

import (
	"encoding/json"
	"sync"

	"github.com/AristidesAI/IBKR-AIHedge/internal/broker"
	"github.com/AristidesAI/IBKR-AIHedge/internal/logger"

	"github.com/gorilla/websocket"
)

// Client speaks the gateway protocol over one long-lived websocket. It is
// the only owner of the connection; all pushes are delivered through the
// events channel and the channel is closed when the connection dies.
type Client struct {
	url      string
	clientID int
	log      *logger.Logger

	conn     *websocket.Conn
	writeMu  sync.Mutex
	events   chan broker.Event
	stopCh   chan struct{}
	stopOnce sync.Once
}

// Message is one inbound gateway frame. Data holds the type-specific payload.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type helloRequest struct {
	Op       string `json:"op"`
	ClientID int    `json:"client_id"`
}

type marketDataRequest struct {
	Op       string `json:"op"`
	ReqID    int    `json:"req_id"`
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
	SecType  string `json:"sec_type"`
}

type accountRequest struct {
	Op        string `json:"op"`
	Subscribe bool   `json:"subscribe"`
}

type orderRequest struct {
	Op        string `json:"op"`
	OrderID   int64  `json:"order_id"`
	Symbol    string `json:"symbol"`
	Exchange  string `json:"exchange"`
	Currency  string `json:"currency"`
	SecType   string `json:"sec_type"`
	Side      string `json:"side"`
	Quantity  int64  `json:"quantity"`
	OrderType string `json:"order_type"`
	TIF       string `json:"tif"`
}
