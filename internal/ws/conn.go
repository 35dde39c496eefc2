package ws

import (
	"context"
	"log"
	"sync"

	"github.com/IshaanShokeen/Collaborative-Canvas/internal/room"

	"github.com/gorilla/websocket"
)

// Conn is one client connection. Its protocol state is held here but
// mutated only on the hub's dispatcher goroutine: roomID is "" until a
// join has been processed, then fixed for the connection's life.
type Conn struct {
	ws  *websocket.Conn
	hub *Hub

	// sessionID doubles as the user id; unique per live connection.
	sessionID string

	roomID string
	user   room.User

	send      chan OutboundMessage
	closeOnce sync.Once
}

func NewConn(ws *websocket.Conn, hub *Hub, sessionID string) *Conn {
	return &Conn{ws: ws, hub: hub, sessionID: sessionID, send: make(chan OutboundMessage, 64)}
}

// enqueue queues an outbound message. The send buffer absorbs bursts; if
// it is full the consumer is too slow to keep the per-connection ordering
// guarantee, so the connection is torn down rather than dropping messages.
func (c *Conn) enqueue(msg OutboundMessage) {
	select {
	case c.send <- msg:
	default:
		log.Printf("slow consumer, closing connection (session=%s room=%s)", c.sessionID, c.roomID)
		c.forceClose()
	}
}

func (c *Conn) forceClose() {
	c.closeOnce.Do(func() {
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

// readLoop decodes inbound frames and hands every one to the hub's single
// dispatcher, preserving this connection's message order. It blocks until
// the connection closes, then submits the disconnect event; the dispatcher
// closes c.send, which ends the write loop.
func (c *Conn) readLoop(ctx context.Context) {
	defer c.hub.dispatch(event{conn: c, disconnect: true})
	for {
		var msg ClientMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			log.Printf("read json error (session=%s, room=%s): %v", c.sessionID, c.roomID, err)
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		c.hub.dispatch(event{conn: c, msg: msg})
	}
}

func (c *Conn) writeLoop() {
	for msg := range c.send {
		_ = c.ws.WriteJSON(msg)
	}
	c.forceClose()
}
