package handler

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/arclightning/arclight/metrics"
)

const (
	// wsKeepAliveInterval is how often the panel sends keep-alive messages to connected clients.
	wsKeepAliveInterval = 10 * time.Second
	// wsReadDeadline is the maximum time to wait for a pong before considering the connection dead.
	wsReadDeadline = 90 * time.Second
	wsWriteTimeout = 5 * time.Second
	// wsSendBuffer is the number of events queued per client before it is
	// considered too slow and dropped.
	wsSendBuffer = 16
)

const (
	EventGameStarted = "game_started"
	EventKeepAlive   = "keep_alive"
)

// Event is a message pushed to websocket clients.
type Event struct {
	Type string    `json:"type"`
	ID   string    `json:"id,omitempty"`
	PID  int       `json:"pid,omitempty"`
	At   time.Time `json:"at,omitzero"`
}

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// wsClient is one connection. Only its handler goroutine writes to conn.
type wsClient struct {
	send chan []byte
}

// EventHub tracks active websocket connections, fans launch events out to
// them, and closes them during graceful shutdown. Create one in main and
// pass it to the router.
type EventHub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	done    chan struct{} // closed on shutdown
	once    sync.Once
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[*wsClient]struct{}),
		done:    make(chan struct{}),
	}
}

func (h *EventHub) add(cl *wsClient) {
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	metrics.EventSubscribers.Inc()
}

func (h *EventHub) remove(cl *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[cl]
	delete(h.clients, cl)
	h.mu.Unlock()
	if ok {
		metrics.EventSubscribers.Dec()
	}
}

// Len returns the number of connected clients.
func (h *EventHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues ev for every connected client. Clients whose queue is
// full miss the event.
func (h *EventHub) Broadcast(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		slog.Error("ws: encode event", "type", ev.Type, "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- msg:
		default:
			slog.Warn("ws: client queue full, dropping event", "type", ev.Type)
		}
	}
}

// Shutdown signals every connection handler to send a close frame and exit.
func (h *EventHub) Shutdown() {
	h.once.Do(func() { close(h.done) })
}

// EventsHandler returns a gin handler that upgrades the request and streams
// hub events until the client leaves or the hub shuts down.
func EventsHandler(hub *EventHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Debug("ws: upgrade failed", "error", err)
			return
		}
		cl := &wsClient{send: make(chan []byte, wsSendBuffer)}
		hub.add(cl)
		defer func() {
			hub.remove(cl)
			_ = conn.Close()
		}()

		if err := writeEvent(conn, keepAlive); err != nil {
			return
		}

		ticker := time.NewTicker(wsKeepAliveInterval)
		defer ticker.Stop()

		_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
			return nil
		})

		readErr := make(chan error, 1)
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					readErr <- err
					return
				}
			}
		}()

		for {
			select {
			case <-hub.done:
				_ = conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(time.Second),
				)
				return
			case msg := <-cl.send:
				if err := writeEvent(conn, msg); err != nil {
					slog.Debug("ws: event write error", "error", err)
					return
				}
			case <-ticker.C:
				if err := writeEvent(conn, keepAlive); err != nil {
					slog.Debug("ws: keepalive write error", "error", err)
					return
				}
			case err := <-readErr:
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure,
					websocket.CloseNoStatusReceived,
				) {
					slog.Debug("ws: unexpected close", "error", err)
				}
				return
			}
		}
	}
}

var keepAlive = []byte(`{"type":"` + EventKeepAlive + `"}`)

func writeEvent(conn *websocket.Conn, msg []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, msg)
}
