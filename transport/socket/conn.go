package socket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 16384

	sendBufferSize = 256
)

// WSConn adapts a gorilla websocket connection to the Conn interface.
// Writes are serialized through a buffered channel drained by WritePump;
// ReadPump decodes envelopes and feeds them to a Socket.
type WSConn struct {
	ws   *websocket.Conn
	send chan Envelope
	log  zerolog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewWSConn wraps ws. The caller must run WritePump in its own
// goroutine and drive ReadPump from the connection handler.
func NewWSConn(ws *websocket.Conn, log zerolog.Logger) *WSConn {
	return &WSConn{
		ws:   ws,
		send: make(chan Envelope, sendBufferSize),
		log:  log,
		done: make(chan struct{}),
	}
}

// WriteEnvelope queues env for delivery. It fails once the connection
// is closed or the send buffer is saturated.
func (c *WSConn) WriteEnvelope(env Envelope) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- env:
		return nil
	case <-c.done:
		return ErrConnClosed
	}
}

// Close tears down the connection. Safe to call more than once.
func (c *WSConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return c.ws.Close()
}

// ReadPump reads envelopes from the peer and dispatches them on s. It
// blocks until the peer disconnects or errors, then closes the
// connection.
func (c *WSConn) ReadPump(s *Socket) {
	defer c.Close()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug().Err(err).Msg("websocket read failed")
			}
			return
		}
		s.Dispatch(env)
	}
}

// WritePump drains the send channel to the peer and keeps the
// connection alive with pings.
func (c *WSConn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case env := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(env); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
