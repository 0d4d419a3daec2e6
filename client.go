package main

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 512
)

// short trims a connID for log lines.
func short(connID string) string {
	if len(connID) > 8 {
		return connID[:8]
	}
	return connID
}

// Client is one live WebSocket connection. Its connID is the channel
// address peers use to target it (sync-code) and the key under which it
// appears in rosters; a fresh one is minted per connection, never reused.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	connID string
	ip     string
	send   chan []byte

	// rooms this connection has joined. Owned by the hub run loop.
	rooms map[string]struct{}

	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, ip string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		connID: uuid.NewString(),
		ip:     ip,
		send:   make(chan []byte, sendBufferSize),
		rooms:  make(map[string]struct{}),
	}
}

// ReadPump decodes inbound frames at the boundary and hands the hub only
// well-formed tagged events. Malformed frames are dropped here; they never
// reach a store or a broadcast.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("read error conn=%s: %v", short(c.connID), err)
			}
			return
		}

		// Malformed frames are a silent no-op for peers; log for ops.
		event, err := DecodeEvent(message)
		if err != nil {
			log.Printf("dropped frame conn=%s: %v", short(c.connID), err)
			continue
		}

		c.hub.Dispatch(c, event)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// Emit queues one event for this connection only. A full send buffer drops
// the frame, same as room broadcasts.
func (c *Client) Emit(event string, data any) {
	frame, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("encode %s: %v", event, err)
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}
