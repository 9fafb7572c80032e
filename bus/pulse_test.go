package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReplicatedMap is an in-memory stand-in for *rmap.Map, just enough to
// exercise PulseAdapter without a live Pulse/Redis cluster.
type fakeReplicatedMap struct {
	mu sync.Mutex
	m  map[string]string
}

func newFakeReplicatedMap() *fakeReplicatedMap {
	return &fakeReplicatedMap{m: make(map[string]string)}
}

func (f *fakeReplicatedMap) Delete(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.m[key]
	delete(f.m, key)
	return v, nil
}

func (f *fakeReplicatedMap) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.m[key]
	return v, ok
}

func (f *fakeReplicatedMap) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.m))
	for k := range f.m {
		keys = append(keys, k)
	}
	return keys
}

func (f *fakeReplicatedMap) Set(_ context.Context, key, value string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[key] = value
	return value, nil
}

func TestPulseAdapterRoundTrip(t *testing.T) {
	m := newFakeReplicatedMap()
	a := NewPulseAdapter(m, "bdi-test")
	require.NoError(t, a.Connect())

	require.NoError(t, a.SendEvent(&ProtocolEvent{Type: KindPercept, Timestamp: time.Now().UTC()}))

	got, err := a.Poll(10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, KindPercept, got[0].Type)
}

func TestPulseAdapterPollConsumesKeys(t *testing.T) {
	m := newFakeReplicatedMap()
	a := NewPulseAdapter(m, "bdi-test")
	require.NoError(t, a.Connect())

	require.NoError(t, a.SendEvent(&ProtocolEvent{Type: KindMessage}))

	first, err := a.Poll(10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := a.Poll(10)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestPulseAdapterNotConnected(t *testing.T) {
	m := newFakeReplicatedMap()
	a := NewPulseAdapter(m, "bdi-test")
	assert.Error(t, a.SendEvent(&ProtocolEvent{}))
}
