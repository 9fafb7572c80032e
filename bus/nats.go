package bus

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

// NATSAdapter mirrors protocol events onto a subject-per-kind scheme
// (`<prefix>.<kind>`), using a single wildcard subscription for Poll.
type NATSAdapter struct {
	url    string
	prefix string

	mu   sync.Mutex
	conn *nats.Conn
	sub  *nats.Subscription
}

// NewNATSAdapter dials url lazily on Connect and publishes under
// `<prefix>.<kind>` subjects.
func NewNATSAdapter(url, prefix string) *NATSAdapter {
	return &NATSAdapter{url: url, prefix: prefix}
}

func (a *NATSAdapter) Connect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	conn, err := nats.Connect(a.url)
	if err != nil {
		return fmt.Errorf("bus: nats connect: %w", err)
	}
	sub, err := conn.SubscribeSync(a.prefix + ".>")
	if err != nil {
		conn.Close()
		return fmt.Errorf("bus: nats subscribe: %w", err)
	}
	a.conn = conn
	a.sub = sub
	return nil
}

func (a *NATSAdapter) Disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sub != nil {
		_ = a.sub.Unsubscribe()
		a.sub = nil
	}
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
}

func (a *NATSAdapter) SendEvent(ev *ProtocolEvent) error {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("bus: nats adapter not connected")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return conn.Publish(a.prefix+"."+string(ev.Type), raw)
}

// Poll drains whatever the subscription has already buffered, using
// NextMsg with a near-zero timeout so a quiet subject never stalls a tick.
func (a *NATSAdapter) Poll(max int) ([]*ProtocolEvent, error) {
	a.mu.Lock()
	sub := a.sub
	a.mu.Unlock()
	if sub == nil {
		return nil, fmt.Errorf("bus: nats adapter not connected")
	}
	var out []*ProtocolEvent
	for max <= 0 || len(out) < max {
		msg, err := sub.NextMsg(0)
		if err != nil {
			break
		}
		var ev ProtocolEvent
		if jerr := json.Unmarshal(msg.Data, &ev); jerr != nil {
			continue
		}
		out = append(out, &ev)
	}
	return out, nil
}
