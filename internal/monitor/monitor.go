// Package monitor is an optional websocket publisher for compile
// progress, used by `knitc compile -monitor` (and served empty by
// `knitc serve`) so a browser-based
// tool can watch a long compile run without polling (spec §4.I:
// "Progress is a monotonic fraction derived from the counts in each
// phase").
package monitor

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is one progress update broadcast to every connected client.
type Event struct {
	SessionID string  `json:"sessionId"`
	Phase     string  `json:"phase"`
	Fraction  float64 `json:"fraction"`
	Message   string  `json:"message,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Publisher fans out Events to every subscriber connected over
// websocket. Safe for concurrent use; the compile driver is
// single-threaded (spec §5) but the HTTP server accepting subscribers
// runs on its own goroutines per net/http's normal model.
type Publisher struct {
	mu      sync.Mutex
	conns   map[*websocket.Conn]struct{}
}

// NewPublisher constructs an empty Publisher.
func NewPublisher() *Publisher {
	return &Publisher{conns: make(map[*websocket.Conn]struct{})}
}

// ServeHTTP upgrades the request to a websocket and registers the
// connection as a subscriber until it closes.
func (p *Publisher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.conns[conn] = struct{}{}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.conns, conn)
		p.mu.Unlock()
		conn.Close()
	}()

	// Drain (and discard) client messages so the read side doesn't
	// block the connection; this channel is publish-only.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Publish broadcasts ev to every currently connected subscriber,
// dropping (and removing) any connection whose write fails.
func (p *Publisher) Publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for conn := range p.conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(p.conns, conn)
		}
	}
}

// Count returns the number of currently connected subscribers.
func (p *Publisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}
