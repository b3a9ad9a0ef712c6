package gateway

import (
	"context"
	"fmt"

	"github.com/AristidesAI/IBKR-AIHedge/internal/broker"
	"github.com/AristidesAI/IBKR-AIHedge/internal/logger"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// URL builds the gateway websocket endpoint from a host and port.
func URL(host string, port int) string {
	return fmt.Sprintf("ws://%s:%d/v1/stream", host, port)
}

func New(url string, clientID int, log *logger.Logger) *Client {
	return &Client{
		url:      url,
		clientID: clientID,
		log:      log,
		events:   make(chan broker.Event, 100),
		stopCh:   make(chan struct{}),
	}
}

// Dial opens the connection and announces the client identifier. The gateway
// answers with a next_valid_id push once the session is ready; waiting for
// it is the session's job, not the transport's.
func (c *Client) Dial(ctx context.Context) error {
	c.logEntry().WithField("url", c.url).Info("connecting to broker gateway")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}

	c.conn = conn
	c.conn.SetReadLimit(2 << 20)

	if err := c.writeJSON(helloRequest{Op: "hello", ClientID: c.clientID}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("send hello: %w", err)
	}

	c.logEntry().Info("gateway connection established")

	go c.readLoop()

	return nil
}

// Close tears the connection down. Idempotent.
func (c *Client) Close() error {
	var err error
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

func (c *Client) Events() <-chan broker.Event {
	return c.events
}

func (c *Client) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *Client) logEntry() *logrus.Entry {
	return c.log.WithComponent("gateway")
}
