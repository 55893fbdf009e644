package fanout

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// errHubStopped is returned by Serve once Run has exited.
var errHubStopped = errors.New("fanout: hub stopped")

const (
	// writeWait bounds a single frame write to a peer.
	writeWait = 10 * time.Second
	// pongWait is how long a peer may stay silent before the read side
	// gives up on it.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// sendBuffer is the per-client queue; overflowing it drops the client.
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Diners connect from arbitrary device browsers via the QR join URL.
	CheckOrigin: func(*http.Request) bool { return true },
}

// client is one connected device subscribed to one session.
type client struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
}

// Serve upgrades the request to a websocket and subscribes it to the
// session's broadcast group until the peer disconnects.  A disconnect
// only removes the subscription; it never touches session state.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{hub: h, conn: conn, sessionID: sessionID, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return errHubStopped
	}
	go c.writePump()
	go c.readPump()
	return nil
}

// readPump drains and discards inbound frames; clients only listen.
// Its real job is detecting the disconnect and keeping pong deadlines.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards queued event frames and pings the peer.  The hub
// closing the send channel is the signal to shut the connection down.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
