package web

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/solar3s/tivalink/tiva"
)

const clientQueueSize = 16

// Hub is a tiva.Sink pushing events to websocket subscribers.
// It keeps the latest sample only, for /status.
type Hub struct {
	Box          *tiva.Box
	WriteTimeout time.Duration

	mu      sync.Mutex
	clients map[*client]struct{}
	last    *tiva.Telemetry
	lastErr string
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

func NewHub(box *tiva.Box, writeTimeout time.Duration) *Hub {
	return &Hub{
		Box:          box,
		WriteTimeout: writeTimeout,
		clients:      make(map[*client]struct{}),
	}
}

func (h *Hub) OnTelemetry(t tiva.Telemetry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &t
	h.broadcast(telemetryEvent(t, h.Box.State(), h.Box.Port()))
}

func (h *Hub) OnConnectionError(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastErr = message
	h.broadcast(errorEvent(message, h.Box.State(), h.Box.Port()))
}

// StateChanged notifies subscribers after a connect or disconnect.
func (h *Hub) StateChanged() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcast(stateEvent(h.Box.State(), h.Box.Port()))
}

// Last returns the latest sample and connection error.
func (h *Hub) Last() (*tiva.Telemetry, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.lastErr
}

// broadcast must be called with h.mu held. Slow clients miss events.
func (h *Hub) broadcast(e Event) {
	for c := range h.clients {
		select {
		case c.send <- e:
		default:
			log.Debugf("websocket - %s is lagging, dropped %s event", c.conn.RemoteAddr(), e.Type)
		}
	}
}

// Serve pushes events to conn until it's closed by the peer or on write error.
func (h *Hub) Serve(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan Event, clientQueueSize)}
	h.mu.Lock()
	c.send <- stateEvent(h.Box.State(), h.Box.Port())
	if h.last != nil {
		c.send <- telemetryEvent(*h.last, h.Box.State(), h.Box.Port())
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range c.send {
			if h.WriteTimeout > 0 {
				conn.SetWriteDeadline(time.Now().Add(h.WriteTimeout))
			}
			if err := conn.WriteJSON(e); err != nil {
				log.Debugf("websocket - lost connection to %s: %s", conn.RemoteAddr(), err)
				conn.Close()
				return
			}
		}
	}()

	// incoming messages are ignored, reading detects the peer going away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.mu.Lock()
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	<-done
	conn.Close()
}

// Clients returns the number of subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
