package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	// sendBuffer is how many results a slow client may fall behind before
	// results are dropped for it.
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local UI
	},
}

// LiveMessage is one tracker result pushed to websocket clients.
type LiveMessage struct {
	Session   string          `json:"session"`
	Result    exercise.Result `json:"result"`
	Timestamp int64           `json:"timestamp"`
}

type liveClient struct {
	// session filters the results sent to this client; empty means all.
	session string
	send    chan []byte
}

// Hub fans tracker results out to websocket clients on /api/live. Publish
// has the session.Listener signature.
type Hub struct {
	metrics *metrics.Manager

	mu      sync.Mutex
	clients map[string]*liveClient
	closed  bool
}

// NewHub creates an empty Hub. m may be nil.
func NewHub(m *metrics.Manager) *Hub {
	return &Hub{
		metrics: m,
		clients: make(map[string]*liveClient),
	}
}

func (h *Hub) subscribe(session string) (string, *liveClient) {
	c := &liveClient{session: session, send: make(chan []byte, sendBuffer)}
	id := uuid.New().String()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(c.send)
		return id, c
	}
	h.clients[id] = c
	if h.metrics != nil {
		h.metrics.GaugeLiveClients.Set(float64(len(h.clients)))
	}
	return id, c
}

func (h *Hub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		close(c.send)
		delete(h.clients, id)
	}
	if h.metrics != nil {
		h.metrics.GaugeLiveClients.Set(float64(len(h.clients)))
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish sends res to every client following sessionID. It never blocks;
// a client whose buffer is full misses the result.
func (h *Hub) Publish(sessionID string, res exercise.Result) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) == 0 {
		return
	}

	data, err := json.Marshal(LiveMessage{
		Session:   sessionID,
		Result:    res,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		log.WithError(err).Error("failed to encode live message")
		return
	}

	for _, c := range h.clients {
		if c.session != "" && c.session != sessionID {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
	}
}

// Close disconnects every client. Later connections are closed at once.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
	if h.metrics != nil {
		h.metrics.GaugeLiveClients.Set(0)
	}
}

// ServeHTTP upgrades the request and streams results until the client goes
// away. The optional ?session= query parameter limits the feed to one
// session.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	id, c := h.subscribe(r.URL.Query().Get("session"))
	defer h.unsubscribe(id)

	log.WithFields(log.Fields{"client": id, "session": c.session}).Debug("live client connected")

	// The reader only watches for the close frame and pongs.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.WithError(err).WithField("client", id).Debug("live client write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
