package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origins are enforced by the CORS layer in front of the API
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is one message pushed to connected accounts.
type Event struct {
	Type        string    `json:"type"`
	AppraisalID uuid.UUID `json:"appraisal_id"`
	Data        any       `json:"data,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

type delivery struct {
	message  []byte
	audience []uuid.UUID
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub       *Hub
	AccountID uuid.UUID
	Conn      *websocket.Conn
	Send      chan []byte
}

// Hub fans events out to the connections of the accounts allowed to see them. One account
// may hold several connections.
type Hub struct {
	clients    map[uuid.UUID]map[*Client]struct{}
	deliver    chan delivery
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

// NewHub initializes a new WS Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		deliver:    make(chan delivery, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run dispatches until Stop is called. Every remaining client is closed on exit.
func (h *Hub) Run() {
	defer h.closeAll()
	for {
		select {
		case <-h.done:
			return
		case client := <-h.register:
			conns, ok := h.clients[client.AccountID]
			if !ok {
				conns = make(map[*Client]struct{})
				h.clients[client.AccountID] = conns
			}
			conns[client] = struct{}{}
			slog.Debug("WebSocket client connected", slog.String("account", client.AccountID.String()))
		case client := <-h.unregister:
			h.remove(client)
		case d := <-h.deliver:
			for _, accountID := range d.audience {
				for client := range h.clients[accountID] {
					select {
					case client.Send <- d.message:
					default:
						slog.Warn("Dropping slow WebSocket client", slog.String("account", accountID.String()))
						h.remove(client)
					}
				}
			}
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Publish queues ev for the given accounts. It never blocks the caller: once the hub is
// stopped or its queue is full the event is dropped.
func (h *Hub) Publish(ev Event, audience ...uuid.UUID) {
	if len(audience) == 0 {
		return
	}
	if ev.SentAt.IsZero() {
		ev.SentAt = time.Now().UTC()
	}
	message, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Fail to encode WebSocket event", slog.String("type", ev.Type), slog.Any("error", err))
		return
	}
	select {
	case <-h.done:
	case h.deliver <- delivery{message: message, audience: dedupe(audience)}:
	default:
		slog.Warn("WebSocket queue full, dropping event", slog.String("type", ev.Type))
	}
}

func (h *Hub) remove(client *Client) {
	conns, ok := h.clients[client.AccountID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	close(client.Send)
	if len(conns) == 0 {
		delete(h.clients, client.AccountID)
	}
	slog.Debug("WebSocket client disconnected", slog.String("account", client.AccountID.String()))
}

func (h *Hub) closeAll() {
	for _, conns := range h.clients {
		for client := range conns {
			close(client.Send)
		}
	}
	h.clients = make(map[uuid.UUID]map[*Client]struct{})
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only watches for the peer going away; clients never send commands.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		_ = c.Conn.Close()
	}()
	c.Conn.SetReadLimit(512)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("WebSocket read failed", slog.Any("error", err))
			}
			return
		}
	}
}

// ServeWs upgrades an already authenticated request and registers the connection under
// accountID.
func ServeWs(hub *Hub, c *gin.Context, accountID uuid.UUID) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", slog.Any("error", err))
		return
	}
	client := &Client{Hub: hub, AccountID: accountID, Conn: conn, Send: make(chan []byte, sendBuffer)}
	select {
	case hub.register <- client:
	case <-hub.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
