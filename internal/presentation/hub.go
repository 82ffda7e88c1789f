package presentation

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/trailview/service-routes/internal/domain/profile"
	"github.com/trailview/service-routes/internal/domain/route"
)

// Message types pushed to WebSocket clients.
const (
	MsgRender             = "render"
	MsgRenderDetails      = "render_details"
	MsgDrawChart          = "draw_chart"
	MsgClearChart         = "clear_chart"
	MsgProfileUnavailable = "profile_unavailable"
	MsgFitBounds          = "fit_bounds"
	MsgPlaceCursor        = "place_cursor"
	MsgClearCursor        = "clear_cursor"
	MsgHighlight          = "highlight"
	MsgClearHighlight     = "clear_highlight"
	MsgError              = "error"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64
)

// Message is one command on the wire.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type cursorPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type indexPayload struct {
	Index int `json:"index"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type idPayload struct {
	ID route.ID `json:"id"`
}

// Hub is a Sink that broadcasts commands to the WebSocket clients of one session.
// Slow clients are dropped rather than blocking the session.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  *zap.Logger
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewHub creates a hub with no clients.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{clients: make(map[*client]struct{}), logger: logger}
}

// Attach starts pushing commands to conn and returns a function that detaches it.
// The caller owns the read side of conn.
func (h *Hub) Attach(conn *websocket.Conn) (detach func()) {
	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	return func() { h.remove(c) }
}

// Clients returns the number of attached clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close detaches every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.once.Do(func() { close(c.send) })
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("websocket write failed, detaching client", zap.Error(err))
			h.remove(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (h *Hub) broadcast(msgType string, payload any) {
	msg := Message{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			h.logger.Error("failed to encode sink payload", zap.String("type", msgType), zap.Error(err))
			return
		}
		msg.Payload = raw
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode sink message", zap.String("type", msgType), zap.Error(err))
		return
	}

	h.mu.Lock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.logger.Warn("websocket client too slow, detaching")
		h.remove(c)
	}
}

func (h *Hub) Render(routes []RouteView) {
	if routes == nil {
		routes = []RouteView{}
	}
	h.broadcast(MsgRender, routes)
}

func (h *Hub) RenderDetails(view *RouteView) { h.broadcast(MsgRenderDetails, view) }

func (h *Hub) DrawChart(samples []profile.Sample) { h.broadcast(MsgDrawChart, samples) }

func (h *Hub) ClearChart() { h.broadcast(MsgClearChart, nil) }

func (h *Hub) ShowProfileUnavailable(id route.ID) {
	h.broadcast(MsgProfileUnavailable, idPayload{ID: id})
}

func (h *Hub) FitBounds(b orb.Bound) { h.broadcast(MsgFitBounds, ExtentOf(b)) }

func (h *Hub) PlaceCursorMarker(x, y float64) {
	h.broadcast(MsgPlaceCursor, cursorPayload{X: x, Y: y})
}

func (h *Hub) ClearCursorMarker() { h.broadcast(MsgClearCursor, nil) }

func (h *Hub) HighlightChartIndex(i int) { h.broadcast(MsgHighlight, indexPayload{Index: i}) }

func (h *Hub) ClearChartHighlight() { h.broadcast(MsgClearHighlight, nil) }

// SendError reports a rejected client command.
func (h *Hub) SendError(message string) {
	h.broadcast(MsgError, errorPayload{Message: message})
}
