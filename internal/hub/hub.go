package hub

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"fleetwatch/internal/metrics"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub fans text frames out to every connected dashboard. It remembers the
// last frame per vessel so a new client is populated on connect.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*client
	last    map[string][]byte
	log     logrus.FieldLogger
}

func New(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		last:    make(map[string][]byte),
		log:     log.WithField("component", "hub"),
	}
}

// Broadcast sends frame to all clients. A client whose buffer is full is
// disconnected rather than stalling the others.
func (h *Hub) Broadcast(vesselID string, frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if vesselID != "" {
		h.last[vesselID] = frame
	}
	for id, c := range h.clients {
		select {
		case c.send <- frame:
		default:
			h.log.WithField("client_id", id).Warn("client too slow, dropping")
			h.removeLocked(id)
		}
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.clients {
		h.removeLocked(id)
	}
}

func (h *Hub) removeLocked(id string) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	c.close()
	metrics.HubClients.Add(-1)
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	h.removeLocked(id)
	h.mu.Unlock()
}

func (h *Hub) register(conn *websocket.Conn) *client {
	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.last))
	for id := range h.last {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		select {
		case c.send <- h.last[id]:
		default:
		}
	}
	h.clients[c.id] = c
	metrics.HubClients.Add(1)
	return c
}

// ServeHTTP upgrades the request and serves the client until it goes away.
// Inbound frames are read and discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	c := h.register(conn)
	log := h.log.WithField("client_id", c.id)
	log.Info("client connected")

	go func() {
		defer h.remove(c.id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.WithError(err).Debug("client read error")
				}
				return
			}
		}
	}()

	for frame := range c.send {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.WithError(err).Debug("client write failed")
			h.remove(c.id)
			break
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = conn.Close()
	log.Info("client disconnected")
}
