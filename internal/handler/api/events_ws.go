package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"BitLearn/internal/domain/models"
	xhttp "BitLearn/pkg/http"
	applogger "BitLearn/pkg/logger"
)

// StreamConfig tunes the websocket event stream.
type StreamConfig struct {
	Buffer      int           // per-client event buffer
	PingPeriod  time.Duration // keepalive ping interval
	WriteWindow time.Duration // deadline for a single write
}

// EventsHandler streams engine events to websocket clients. Each client has
// its own bus subscription, so a slow reader only loses its own events.
type EventsHandler struct {
	engine   Engine
	cfg      StreamConfig
	upgrader websocket.Upgrader
	l        *applogger.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closed  bool
}

func NewEventsHandler(engine Engine, cfg StreamConfig, l *applogger.Logger) *EventsHandler {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = 30 * time.Second
	}
	if cfg.WriteWindow <= 0 {
		cfg.WriteWindow = 10 * time.Second
	}
	return &EventsHandler{
		engine: engine,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Origin policy is enforced by the CORS middleware in front of the API.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		l:       l,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

func (h *EventsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/events", h.Stream)
}

// Stream upgrades the request and forwards events until the client goes away.
// ?types= restricts the topics.
func (h *EventsHandler) Stream(c echo.Context) error {
	var topics []models.EventType
	for _, name := range xhttp.QueryList(c, "types") {
		t := models.EventType(name)
		if !isEventType(t) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("unknown event type %q", name).WithField("types"))
		}
		topics = append(topics, t)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.l.Warn("websocket upgrade failed", applogger.Error(err))
		return nil
	}
	if !h.track(conn) {
		_ = conn.Close()
		return nil
	}

	events, unsubscribe := h.engine.Subscribe(h.cfg.Buffer, topics...)
	h.l.Debug("event stream opened", applogger.String("remote", c.RealIP()), applogger.Int("topics", len(topics)))

	done := make(chan struct{})
	go h.readPump(conn, done)
	h.writePump(conn, events, done)

	unsubscribe()
	h.untrack(conn)
	_ = conn.Close()
	h.l.Debug("event stream closed", applogger.String("remote", c.RealIP()))
	return nil
}

// readPump drains client frames so control messages are processed, and
// closes done when the connection fails.
func (h *EventsHandler) readPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	wait := 2 * h.cfg.PingPeriod
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *EventsHandler) writePump(conn *websocket.Conn, events <-chan models.Event, done <-chan struct{}) {
	ping := time.NewTicker(h.cfg.PingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWindow))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "engine shutting down"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteWindow)); err != nil {
				return
			}
		}
	}
}

func (h *EventsHandler) track(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[conn] = struct{}{}
	return true
}

func (h *EventsHandler) untrack(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// Clients returns the number of open streams.
func (h *EventsHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close drops every open stream. Hijacked connections are not covered by the
// HTTP server's graceful shutdown.
func (h *EventsHandler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn := range h.clients {
		_ = conn.Close()
	}
	return nil
}

func isEventType(t models.EventType) bool {
	for _, known := range models.AllEventTypes {
		if t == known {
			return true
		}
	}
	return false
}
