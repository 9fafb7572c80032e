package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/cortexagents/bdi/uid"
)

// Map is the minimal replicated-map contract PulseAdapter needs. It is
// satisfied by *rmap.Map from goa.design/pulse/rmap; defining it locally
// keeps the adapter unit-testable without a live Redis-backed cluster,
// the same narrow-interface seam the teacher's replicated registry store
// uses for its own Pulse dependency.
type Map interface {
	Delete(ctx context.Context, key string) (string, error)
	Get(key string) (string, bool)
	Keys() []string
	Set(ctx context.Context, key, value string) (string, error)
}

// PulseAdapter mirrors protocol events through a Pulse replicated map
// instead of a dedicated pub/sub transport: SendEvent stores the event
// under a fresh key, Poll lists and consumes (deletes) keys under the
// adapter's prefix. This gives cluster-wide visibility of bus traffic
// using the same coordination primitive the teacher's own adaptive rate
// limiter and replicated registry store use, rather than requiring a
// separate broker when a Pulse-backed deployment already has one.
type PulseAdapter struct {
	m      Map
	prefix string
	ctx    context.Context

	mu        sync.Mutex
	connected bool
}

// NewPulseAdapter wraps m, an already-joined replicated map, prefixing
// every key it writes/reads with prefix (so multiple adapters can safely
// share one Map).
func NewPulseAdapter(m Map, prefix string) *PulseAdapter {
	return &PulseAdapter{m: m, prefix: prefix, ctx: context.Background()}
}

func (a *PulseAdapter) Connect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = true
	return nil
}

func (a *PulseAdapter) Disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = false
}

func (a *PulseAdapter) SendEvent(ev *ProtocolEvent) error {
	a.mu.Lock()
	connected := a.connected
	a.mu.Unlock()
	if !connected {
		return fmt.Errorf("bus: pulse adapter not connected")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	key := a.prefix + "." + uid.New().String()
	if _, err := a.m.Set(a.ctx, key, string(raw)); err != nil {
		return fmt.Errorf("bus: pulse set: %w", err)
	}
	return nil
}

// Poll lists every key under the adapter's prefix, decodes and deletes up
// to max of them (0 means unbounded), and returns the decoded events. Keys
// that fail to decode are dropped without blocking the rest of the batch.
func (a *PulseAdapter) Poll(max int) ([]*ProtocolEvent, error) {
	a.mu.Lock()
	connected := a.connected
	a.mu.Unlock()
	if !connected {
		return nil, fmt.Errorf("bus: pulse adapter not connected")
	}

	var out []*ProtocolEvent
	for _, key := range a.m.Keys() {
		if max > 0 && len(out) >= max {
			break
		}
		if !strings.HasPrefix(key, a.prefix+".") {
			continue
		}
		val, ok := a.m.Get(key)
		if !ok {
			continue
		}
		if _, err := a.m.Delete(a.ctx, key); err != nil {
			continue
		}
		var ev ProtocolEvent
		if err := json.Unmarshal([]byte(val), &ev); err != nil {
			continue
		}
		out = append(out, &ev)
	}
	return out, nil
}
