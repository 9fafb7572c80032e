package bus

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimitedAdapter wraps an Adapter and throttles outbound SendEvent
// calls to a fixed rate, so a busy tick loop cannot flood a slow transport
// (e.g. a websocket visualiser or a NATS subject with few consumers).
// Connect, Disconnect, and Poll pass straight through; only SendEvent
// blocks on the token bucket.
type RateLimitedAdapter struct {
	next    Adapter
	limiter *rate.Limiter

	mu  sync.Mutex
	ctx context.Context
}

// NewRateLimitedAdapter wraps next with a token bucket allowing eventsPerSec
// sustained, bursting up to burst events.
func NewRateLimitedAdapter(next Adapter, eventsPerSec float64, burst int) *RateLimitedAdapter {
	return &RateLimitedAdapter{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(eventsPerSec), burst),
		ctx:     context.Background(),
	}
}

func (a *RateLimitedAdapter) Connect() error { return a.next.Connect() }

func (a *RateLimitedAdapter) Disconnect() { a.next.Disconnect() }

// SendEvent blocks until the limiter admits the send, then forwards it.
func (a *RateLimitedAdapter) SendEvent(ev *ProtocolEvent) error {
	a.mu.Lock()
	ctx := a.ctx
	a.mu.Unlock()
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	return a.next.SendEvent(ev)
}

func (a *RateLimitedAdapter) Poll(max int) ([]*ProtocolEvent, error) { return a.next.Poll(max) }
