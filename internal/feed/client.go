package feed

import (
	"context"
	"sync"
	"time"

	gorillaWS "github.com/gorilla/websocket"

	"github.com/SoftwareFuze/ScrapBook/internal/common/constants"
	"github.com/SoftwareFuze/ScrapBook/internal/common/logger"
)

// Client is one websocket subscriber. The hub writes into send; writePump owns the
// connection's write side and readPump only services control frames.
type Client struct {
	hub         *Hub
	conn        *gorillaWS.Conn
	communityID string
	send        chan []byte
	log         *logger.Logger

	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *gorillaWS.Conn, communityID string, log *logger.Logger) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		communityID: communityID,
		send:        make(chan []byte, constants.FeedSendBufSize),
		log:         log,
	}
}

func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// enqueue must be called with the hub lock held.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// close must be called with the hub lock held, which keeps it ordered after any enqueue.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *Client) readPump() {
	reason := "client_closed"
	defer func() {
		c.hub.Unsubscribe(c, reason)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(constants.FeedMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(constants.FeedPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(constants.FeedPongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if gorillaWS.IsUnexpectedCloseError(err, gorillaWS.CloseGoingAway, gorillaWS.CloseNormalClosure) {
				reason = "read_error"
				c.log.WithFields(context.Background(), logger.Fields{
					"community_id": c.communityID,
					"action":       "feed_read_error",
				}).Warnf("feed websocket read error: %v", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(constants.FeedPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(constants.FeedWriteWait))
			if !ok {
				c.conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(gorillaWS.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(constants.FeedWriteWait))
			if err := c.conn.WriteMessage(gorillaWS.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
