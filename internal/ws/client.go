// Package ws is the WebSocket transport: one Client per connection with a
// serialized read pump and a serialized write pump over a bounded outbound
// queue.
package ws

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Raspberrynani/ft-solocendence/internal/session"
)

// Handler receives transport events. The lobby router implements it.
type Handler interface {
	HandleConnect(s session.Session)
	HandleFrame(s session.Session, data []byte)
	HandleDisconnect(s session.Session)
}

// frame is one queued outbound message.
type frame struct {
	v        any
	snapshot bool
}

// Client is one connected player. It implements session.Session. Outbound
// writes are serialized by the write pump; a slow client sheds old
// snapshots and, if control frames pile up past the hard limit, is closed.
type Client struct {
	id     session.ID
	conn   *websocket.Conn
	logger *log.Logger

	writeTimeout time.Duration
	queueSize    int

	mu     sync.Mutex
	queue  []frame
	notify chan struct{}

	done sync.Once
	dead chan struct{}
}

// hardLimitFactor bounds control-frame buildup beyond the soft queue size
// before the connection is declared unrecoverable.
const hardLimitFactor = 4

// NewClient wraps an upgraded connection.
func NewClient(conn *websocket.Conn, queueSize int, writeTimeout time.Duration, logger *log.Logger) *Client {
	if queueSize < 1 {
		queueSize = 64
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Client{
		id:           session.ID(uuid.NewString()),
		conn:         conn,
		logger:       logger,
		writeTimeout: writeTimeout,
		queueSize:    queueSize,
		notify:       make(chan struct{}, 1),
		dead:         make(chan struct{}),
	}
}

// ID returns the connection identifier.
func (c *Client) ID() session.ID { return c.id }

// Done closes when the connection has ended.
func (c *Client) Done() <-chan struct{} { return c.dead }

// Close terminates the connection. Safe to call multiple times.
func (c *Client) Close() {
	c.done.Do(func() {
		close(c.dead)
		c.conn.Close()
	})
}

// Send enqueues a control frame. Control frames are never dropped; if the
// queue exceeds the hard limit the connection is closed instead.
func (c *Client) Send(v any) {
	c.enqueue(frame{v: v})
}

// SendSnapshot enqueues a state snapshot. On overflow the oldest queued
// snapshot is dropped in its favor; control frames are untouched.
func (c *Client) SendSnapshot(v any) {
	c.enqueue(frame{v: v, snapshot: true})
}

func (c *Client) enqueue(f frame) {
	select {
	case <-c.dead:
		return
	default:
	}

	c.mu.Lock()
	if len(c.queue) >= c.queueSize {
		if dropped := c.dropOldestSnapshotLocked(); !dropped && !f.snapshot {
			// Queue is all control frames. Tolerate growth up to the
			// hard limit, then give the connection up as unrecoverable.
			if len(c.queue) >= c.queueSize*hardLimitFactor {
				c.mu.Unlock()
				c.logger.Warn("outbound queue overflow, closing connection", "conn", c.id)
				c.Close()
				return
			}
		} else if !dropped && f.snapshot {
			// Nothing sheddable and the new frame is itself droppable.
			c.mu.Unlock()
			return
		}
	}
	c.queue = append(c.queue, f)
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func (c *Client) dropOldestSnapshotLocked() bool {
	for i, f := range c.queue {
		if f.snapshot {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			return true
		}
	}
	return false
}

// Serve runs the connection: registers with the handler, starts the write
// pump, and reads inbound frames until the peer disappears. It blocks until
// the connection ends and always finishes with the handler's disconnect
// cleanup.
func (c *Client) Serve(h Handler) {
	h.HandleConnect(c)
	go c.writePump()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("read error", "conn", c.id, "error", err)
			}
			break
		}
		h.HandleFrame(c, data)
	}

	c.Close()
	h.HandleDisconnect(c)
}

// writePump drains the outbound queue in order. A write error closes the
// connection; cleanup is driven by the read side observing the close.
func (c *Client) writePump() {
	for {
		select {
		case <-c.dead:
			return
		case <-c.notify:
		}

		for {
			c.mu.Lock()
			if len(c.queue) == 0 {
				c.mu.Unlock()
				break
			}
			f := c.queue[0]
			c.queue = c.queue[1:]
			c.mu.Unlock()

			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteJSON(f.v); err != nil {
				c.logger.Debug("write error, closing connection", "conn", c.id, "error", err)
				c.Close()
				return
			}
		}
	}
}
