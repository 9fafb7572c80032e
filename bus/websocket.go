package bus

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketAdapter mirrors protocol events as one JSON text frame per event
// over a client connection dialed to a visualiser or remote collaborator.
// Safe to Connect again after Disconnect, redialing from scratch.
type WebSocketAdapter struct {
	url    string
	dialer *websocket.Dialer
	header http.Header

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocketAdapter targets the given ws(s):// URL, dialed on Connect.
func NewWebSocketAdapter(url string) *WebSocketAdapter {
	return &WebSocketAdapter{url: url, dialer: websocket.DefaultDialer}
}

func (a *WebSocketAdapter) Connect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	conn, _, err := a.dialer.Dial(a.url, a.header)
	if err != nil {
		return fmt.Errorf("bus: websocket dial: %w", err)
	}
	a.conn = conn
	return nil
}

func (a *WebSocketAdapter) Disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn != nil {
		_ = a.conn.Close()
		a.conn = nil
	}
}

func (a *WebSocketAdapter) SendEvent(ev *ProtocolEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return fmt.Errorf("bus: websocket adapter not connected")
	}
	return a.conn.WriteJSON(ev)
}

// Poll drains whatever frames have already arrived without blocking past a
// short read deadline; the engine's tick loop calls Poll once per tick and
// must never stall on a quiet connection.
func (a *WebSocketAdapter) Poll(max int) ([]*ProtocolEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return nil, fmt.Errorf("bus: websocket adapter not connected")
	}
	var out []*ProtocolEvent
	for max <= 0 || len(out) < max {
		_ = a.conn.SetReadDeadline(time.Now().Add(5 * time.Millisecond))
		var ev ProtocolEvent
		if err := a.conn.ReadJSON(&ev); err != nil {
			break
		}
		out = append(out, &ev)
	}
	return out, nil
}

// ServeUpgrade is a convenience http.HandlerFunc for tests and local runs
// that need the engine to act as the WebSocket server side instead of the
// dialing client; it upgrades the request and installs the resulting
// connection as a AcceptedWebSocketAdapter.
func ServeUpgrade(ctx context.Context, upgrader websocket.Upgrader, w http.ResponseWriter, r *http.Request) (*AcceptedWebSocketAdapter, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return &AcceptedWebSocketAdapter{conn: conn}, nil
}

// AcceptedWebSocketAdapter wraps a server-accepted connection; Connect is a
// no-op since the handshake already happened in ServeUpgrade.
type AcceptedWebSocketAdapter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (a *AcceptedWebSocketAdapter) Connect() error { return nil }

func (a *AcceptedWebSocketAdapter) Disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn != nil {
		_ = a.conn.Close()
	}
}

func (a *AcceptedWebSocketAdapter) SendEvent(ev *ProtocolEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn.WriteJSON(ev)
}

func (a *AcceptedWebSocketAdapter) Poll(max int) ([]*ProtocolEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*ProtocolEvent
	for max <= 0 || len(out) < max {
		_ = a.conn.SetReadDeadline(time.Now().Add(5 * time.Millisecond))
		var ev ProtocolEvent
		if err := a.conn.ReadJSON(&ev); err != nil {
			break
		}
		out = append(out, &ev)
	}
	return out, nil
}
