package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// subscriber is one websocket connection. asset 0 receives every event.
type subscriber struct {
	id    string
	conn  *websocket.Conn
	send  chan events.Event
	done  chan struct{}
	asset domain.AssetID
}

// Hub fans committed engine events out to websocket clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*subscriber
	sub     events.Subscription
	metrics *metrics.Collector
	logger  *zap.Logger
	closed  bool
}

// NewHub subscribes to every event on bus. collector may be nil.
func NewHub(bus *events.Bus, collector *metrics.Collector, logger *zap.Logger) *Hub {
	h := &Hub{
		clients: make(map[string]*subscriber),
		metrics: collector,
		logger:  logger.Named("ws-hub"),
	}
	h.sub = bus.Subscribe(events.All, events.HandlerFunc(h.broadcast))
	return h
}

func eventAsset(ev events.Event) domain.AssetID {
	switch e := ev.(type) {
	case events.AssetCreatedEvent:
		return e.AssetID
	case events.TradeEvent:
		return e.Receipt.AssetID
	case events.AssetGraduatedEvent:
		return e.AssetID
	case events.MigrationFailedEvent:
		return e.AssetID
	}
	return 0
}

// broadcast never blocks the bus; a client whose queue is full misses the event.
func (h *Hub) broadcast(_ context.Context, ev events.Event) error {
	asset := eventAsset(ev)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.asset != 0 && c.asset != asset {
			continue
		}
		select {
		case c.send <- ev:
		case <-c.done:
		default:
			h.logger.Warn("Client queue full, dropping event",
				zap.String("client_id", c.id),
				zap.String("event_type", string(ev.Type())))
		}
	}
	return nil
}

func (h *Hub) add(c *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	h.reportConnections()
	return true
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		close(c.done)
		delete(h.clients, id)
		h.reportConnections()
	}
}

func (h *Hub) reportConnections() {
	if h.metrics != nil {
		h.metrics.UpdateWebsocketConnections(len(h.clients))
	}
}

// Clients returns the number of open connections.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request. The optional asset query parameter limits
// the stream to one asset.
func (h *Hub) ServeWS(c *gin.Context) {
	var asset domain.AssetID
	if raw := c.Query("asset"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			SendAPIResponse(c, http.StatusBadRequest, false, "invalid asset filter", nil)
			return
		}
		asset = domain.AssetID(id)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	client := &subscriber{
		id:    uuid.New().String(),
		conn:  conn,
		send:  make(chan events.Event, sendBuffer),
		done:  make(chan struct{}),
		asset: asset,
	}
	if !h.add(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}
	h.logger.Debug("Client connected", zap.String("client_id", client.id), zap.Uint64("asset_id", uint64(asset)))

	go h.writeLoop(client)
	go h.readLoop(client)
}

// readLoop only drains control frames; clients do not send commands.
func (h *Hub) readLoop(c *subscriber) {
	defer func() {
		h.remove(c.id)
		c.conn.Close()
		h.logger.Debug("Client disconnected", zap.String("client_id", c.id))
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("Websocket read error", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			c.conn.Close()
			return

		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				h.logger.Warn("Websocket write error", zap.String("client_id", c.id), zap.Error(err))
				c.conn.Close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

// Close unsubscribes from the bus and disconnects every client.
func (h *Hub) Close() error {
	h.sub.Unsubscribe()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		close(c.done)
		delete(h.clients, id)
	}
	h.reportConnections()
	return nil
}
