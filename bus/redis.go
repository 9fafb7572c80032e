package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAdapter mirrors protocol events by publishing to a single channel
// and polling a subscription to the same channel for inbound events. It is
// meant for fan-out to multiple observers of one engine, not point-to-point
// delivery.
type RedisAdapter struct {
	client  *redis.Client
	channel string

	mu   sync.Mutex
	sub  *redis.PubSub
	recv <-chan *redis.Message
}

// NewRedisAdapter builds an adapter publishing/subscribing on channel using
// an already-configured client; the client's own lifecycle is owned by the
// caller.
func NewRedisAdapter(client *redis.Client, channel string) *RedisAdapter {
	return &RedisAdapter{client: client, channel: channel}
}

func (a *RedisAdapter) Connect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("bus: redis ping: %w", err)
	}
	a.sub = a.client.Subscribe(context.Background(), a.channel)
	a.recv = a.sub.Channel()
	return nil
}

func (a *RedisAdapter) Disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sub != nil {
		_ = a.sub.Close()
		a.sub = nil
		a.recv = nil
	}
}

func (a *RedisAdapter) SendEvent(ev *ProtocolEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return a.client.Publish(context.Background(), a.channel, raw).Err()
}

// Poll drains any messages already buffered on the subscription channel
// without blocking; the tick loop calls Poll once per tick, so waiting for
// a slow publisher here would stall every agent.
func (a *RedisAdapter) Poll(max int) ([]*ProtocolEvent, error) {
	a.mu.Lock()
	recv := a.recv
	a.mu.Unlock()
	if recv == nil {
		return nil, fmt.Errorf("bus: redis adapter not connected")
	}
	var out []*ProtocolEvent
	for max <= 0 || len(out) < max {
		select {
		case msg, ok := <-recv:
			if !ok {
				return out, nil
			}
			var ev ProtocolEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			out = append(out, &ev)
		default:
			return out, nil
		}
	}
	return out, nil
}
