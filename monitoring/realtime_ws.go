package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageType tags a websocket message envelope.
type MessageType string

const (
	PredictionEventType MessageType = "prediction"
	HeartbeatType       MessageType = "heartbeat"
)

// Message is the envelope every websocket payload travels in.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	ID        string          `json:"id"`
}

// PredictionEvent is pushed to monitor clients after each successful
// prediction.
type PredictionEvent struct {
	Data              string  `json:"data"`
	Bairro            string  `json:"bairro"`
	TipoCrimePrevisto string  `json:"tipo_crime_previsto"`
	Probabilidade     float64 `json:"probabilidade"`
}

// HeartbeatEvent is pushed periodically so idle clients can tell the feed
// is alive.
type HeartbeatEvent struct {
	Status           string `json:"status"`
	ConnectedClients int    `json:"connected_clients"`
}

const (
	writeWait      = 30 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	heartbeatEvery = 30 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Hub fans prediction events out to connected websocket clients. All
// client map access happens on the Start goroutine.
type Hub struct {
	clients     map[*client]bool
	broadcast   chan []byte
	register    chan *client
	unregister  chan *client
	clientCount atomic.Int64
	upgrader    websocket.Upgrader
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Start runs the hub loop until Stop is called.
func (h *Hub) Start() {
	heartbeat := time.NewTicker(heartbeatEvery)
	defer func() {
		heartbeat.Stop()
		h.logger.Info("websocket hub stopped")
	}()

	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.clientCount.Store(int64(len(h.clients)))
			h.logger.Info("monitor client connected",
				zap.String("client", c.id), zap.Int("total", len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.clientCount.Store(int64(len(h.clients)))
			h.logger.Info("monitor client disconnected",
				zap.String("client", c.id), zap.Int("total", len(h.clients)))

		case message := <-h.broadcast:
			h.deliver(message)

		case <-heartbeat.C:
			if len(h.clients) == 0 {
				continue
			}
			payload, err := envelope(HeartbeatType, HeartbeatEvent{
				Status:           "alive",
				ConnectedClients: len(h.clients),
			})
			if err != nil {
				continue
			}
			h.deliver(payload)

		case <-h.ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.clientCount.Store(0)
			return
		}
	}
}

// deliver pushes one message to every client, dropping clients whose send
// queue is full. Runs on the Start goroutine only.
func (h *Hub) deliver(message []byte) {
	for c := range h.clients {
		select {
		case c.send <- message:
		default:
			close(c.send)
			delete(h.clients, c)
		}
	}
	h.clientCount.Store(int64(len(h.clients)))
}

// Stop shuts the hub loop down and closes every client.
func (h *Hub) Stop() {
	h.cancel()
}

// ClientCount reports how many monitor clients are connected.
func (h *Hub) ClientCount() int {
	return int(h.clientCount.Load())
}

// HandleWebSocket upgrades the request and attaches the client to the hub.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, 256),
		id:   generateClientID(),
	}
	select {
	case h.register <- c:
	case <-h.ctx.Done():
		conn.Close()
		return
	}

	go c.writePump(h.logger)
	go c.readPump(h)
}

// Broadcast queues a message for every client, dropping it when the queue
// is full rather than blocking the serving path.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message")
	}
}

func (c *client) writePump(logger *zap.Logger) {
	pings := time.NewTicker(pingPeriod)
	defer func() {
		pings.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("websocket write failed", zap.String("client", c.id), zap.Error(err))
				return
			}

		case <-pings.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains inbound frames. The feed is one-way, so client messages
// are discarded; the read loop only serves pong handling and disconnect
// detection.
func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket read failed", zap.String("client", c.id), zap.Error(err))
			}
			return
		}
	}
}

// Monitor ties the websocket hub to the serving counters.
type Monitor struct {
	hub    *Hub
	stats  *Stats
	logger *zap.Logger
}

func NewMonitor(logger *zap.Logger) *Monitor {
	return &Monitor{
		hub:    NewHub(logger),
		stats:  NewStats(),
		logger: logger,
	}
}

// Start runs the hub loop. Call it on its own goroutine.
func (m *Monitor) Start() {
	m.hub.Start()
}

func (m *Monitor) Stop() {
	m.hub.Stop()
}

// HandleWebSocket attaches a monitor client to the feed.
func (m *Monitor) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	m.hub.HandleWebSocket(w, r)
}

// RecordPrediction counts a successful prediction and pushes it to the
// monitor feed.
func (m *Monitor) RecordPrediction(event PredictionEvent) {
	m.stats.RecordPrediction()

	payload, err := envelope(PredictionEventType, event)
	if err != nil {
		m.logger.Warn("failed to encode prediction event", zap.Error(err))
		return
	}
	m.hub.Broadcast(payload)
}

func (m *Monitor) RecordValidationError() {
	m.stats.RecordValidationError()
}

func (m *Monitor) RecordUnavailable() {
	m.stats.RecordUnavailable()
}

func (m *Monitor) RecordInternalError() {
	m.stats.RecordInternalError()
}

// Snapshot reports the serving counters plus the connected client count.
func (m *Monitor) Snapshot() StatsSnapshot {
	return m.stats.Snapshot(m.hub.ClientCount())
}

func envelope(messageType MessageType, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{
		Type:      messageType,
		Timestamp: time.Now(),
		Data:      data,
		ID:        generateMessageID(),
	})
}

func generateClientID() string {
	return fmt.Sprintf("client_%d", time.Now().UnixNano())
}

func generateMessageID() string {
	return fmt.Sprintf("msg_%d", time.Now().UnixNano())
}
