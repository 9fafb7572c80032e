package bus

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimitedAdapterForwardsSend(t *testing.T) {
	var buf bytes.Buffer
	inner := NewJSONAdapter(&buf)
	require.NoError(t, inner.Connect())

	limited := NewRateLimitedAdapter(inner, 1000, 10)
	require.NoError(t, limited.SendEvent(&ProtocolEvent{Type: KindPercept, Timestamp: time.Now().UTC()}))

	got, err := limited.Poll(10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, KindPercept, got[0].Type)
}

func TestRateLimitedAdapterThrottles(t *testing.T) {
	var buf bytes.Buffer
	inner := NewJSONAdapter(&buf)
	require.NoError(t, inner.Connect())

	limited := NewRateLimitedAdapter(inner, 5, 1)
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limited.SendEvent(&ProtocolEvent{Type: KindPercept, Timestamp: time.Now().UTC()}))
	}
	require.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}
