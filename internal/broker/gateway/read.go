package gateway

import (
	"encoding/json"

	"github.com/AristidesAI/IBKR-AIHedge/internal/broker"
)

// readLoop pumps inbound frames into the events channel. There is no
// reconnect here: a read error emits one Disconnected event, closes the
// channel and exits. Reconnection policy belongs to whoever owns the client.
func (c *Client) readLoop() {
	c.logEntry().Debug("read loop started")

	defer close(c.events)

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.stopCh:
				// Expected close, nothing to report.
			default:
				c.logEntry().WithError(err).Warn("gateway read failed")
				c.events <- broker.Event{Type: broker.EventTypeDisconnected}
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logEntry().WithError(err).Warn("dropping unparseable gateway frame")
			continue
		}

		event, ok := c.parseMessage(msg)
		if !ok {
			continue
		}
		c.events <- event
	}
}
