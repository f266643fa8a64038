package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

type feedMessage struct {
	Type      string     `json:"type"`
	Community *Community `json:"community"`
}

// Follow streams committed snapshots of a community to onSnapshot until ctx ends or the
// connection drops. The first snapshot arrives right after the handshake.
func (c *Client) Follow(ctx context.Context, communityID string, onSnapshot func(Community)) error {
	endpoint, err := url.Parse(c.baseURL + "/communities/feed")
	if err != nil {
		return fmt.Errorf("parse feed url: %w", err)
	}
	endpoint.Scheme = strings.Replace(endpoint.Scheme, "http", "ws", 1)
	endpoint.RawQuery = url.Values{"communityID": {communityID}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read feed: %w", err)
		}

		var msg feedMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Community == nil {
			continue
		}
		onSnapshot(*msg.Community)
	}
}
