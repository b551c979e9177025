package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// PredictionEvent is one served prediction as broadcast to observers.
type PredictionEvent struct {
	Airline     string    `json:"airline"`
	FlightType  string    `json:"flight_type"`
	Month       int       `json:"month"`
	PeriodDay   string    `json:"period_day"`
	HighSeason  int       `json:"high_season"`
	Label       int       `json:"delay"`
	Probability float64   `json:"probability"`
	ServedAt    time.Time `json:"served_at"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans prediction events out to connected websocket observers and
// keeps a bounded ring of recent events for late joiners. The ring is
// observability state only; predictions are never served from it.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	recent     *lru.Cache[int64, PredictionEvent]
	seq        atomic.Int64
	log        *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewHub creates a hub with a recent-event ring of the given size.
func NewHub(recentSize int, log *zap.Logger) (*Hub, error) {
	if recentSize <= 0 {
		recentSize = 256
	}
	recent, err := lru.New[int64, PredictionEvent](recentSize)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		recent: recent,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Run processes client churn and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.log.Info("observer connected", zap.Int("total", h.clientCount()))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop shuts down the hub and disconnects all observers.
func (h *Hub) Stop() {
	h.cancel()
}

// Publish records an event in the recent ring and broadcasts it.
func (h *Hub) Publish(event PredictionEvent) {
	h.recent.Add(h.seq.Add(1), event)
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		// Drop rather than block the serving path.
	}
}

// Recent returns the buffered events, oldest first.
func (h *Hub) Recent() []PredictionEvent {
	keys := h.recent.Keys()
	events := make([]PredictionEvent, 0, len(keys))
	for _, key := range keys {
		if event, ok := h.recent.Peek(key); ok {
			events = append(events, event)
		}
	}
	return events
}

// HandleWebSocket upgrades the connection and registers an observer.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 64)}
	h.register <- c

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
