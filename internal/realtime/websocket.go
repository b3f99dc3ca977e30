package realtime

import (
	"log/slog"
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxInboundSize = 512
	subscriberBuf  = 16
)

// HandlerOption configures the websocket handler.
type HandlerOption func(*handler)

// WithLogger sets the handler's logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithInitialState sends the event returned by fn as the first message on
// every new connection.
func WithInitialState(fn func() Event) HandlerOption {
	return func(h *handler) {
		h.initial = fn
	}
}

// WithAllowedOrigin restricts upgrades to requests from origin. An empty
// origin or "*" accepts any.
func WithAllowedOrigin(origin string) HandlerOption {
	return func(h *handler) {
		if origin == "" || origin == "*" {
			return
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			return r.Header.Get("Origin") == origin
		}
	}
}

type handler struct {
	hub      *Hub
	logger   *slog.Logger
	initial  func() Event
	upgrader gorillaws.Upgrader
}

// Handler upgrades to a websocket and streams hub events until either side
// goes away. Inbound messages are discarded.
func Handler(hub *Hub, opts ...HandlerOption) http.Handler {
	h := &handler{
		hub:    hub,
		logger: slog.Default(),
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "websocket")
	return h
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id, events := h.hub.Subscribe(subscriberBuf)
	defer h.hub.Unsubscribe(id)

	closed := make(chan struct{})
	go readPump(conn, closed)

	if h.initial != nil {
		if err := write(conn, h.initial()); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(gorillaws.CloseMessage,
					gorillaws.FormatCloseMessage(gorillaws.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if err := write(conn, ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(gorillaws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func write(conn *gorillaws.Conn, ev Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(gorillaws.TextMessage, MarshalJSON(ev))
}

// readPump processes control frames and signals when the peer disconnects.
func readPump(conn *gorillaws.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(maxInboundSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
