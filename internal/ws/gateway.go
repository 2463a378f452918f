package ws

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Gateway upgrades HTTP requests into served client connections.
type Gateway struct {
	handler      Handler
	logger       *log.Logger
	queueSize    int
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewGateway creates a gateway that serves each upgraded connection with
// the given handler.
func NewGateway(handler Handler, queueSize int, writeTimeout time.Duration, logger *log.Logger) *Gateway {
	return &Gateway{
		handler:      handler,
		logger:       logger,
		queueSize:    queueSize,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The browser client connects cross-origin during local
			// development; auth is handled at the message level.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handle upgrades the request and serves the connection until it ends.
func (g *Gateway) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	client := NewClient(conn, g.queueSize, g.writeTimeout, g.logger)
	go client.Serve(g.handler)
}
