package event_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexagents/bdi/event"
	"github.com/cortexagents/bdi/uid"
)

func TestQueueFIFOPerProducer(t *testing.T) {
	q := event.NewQueue()
	caller := uid.New()
	recipient := uid.New()

	var pushed []*event.Event
	for i := 0; i < 5; i++ {
		e := event.NewEvent(event.KindTimer, caller, recipient)
		pushed = append(pushed, e)
		q.Push(e)
	}

	for i := 0; i < 5; i++ {
		got, ok := q.Pop()
		require.True(t, ok)
		assert.True(t, got.ID.Equal(pushed[i].ID))
	}
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestQueueConcurrentProducersAllDelivered(t *testing.T) {
	q := event.NewQueue()
	const producers = 16
	const perProducer = 200

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(event.NewEvent(event.KindTimer, uid.New(), uid.New()))
			}
		}()
	}
	wg.Wait()

	count := len(q.Drain())
	assert.Equal(t, producers*perProducer, count)
	assert.True(t, q.Empty())
}

func TestPromiseResolveOnce(t *testing.T) {
	p := event.NewPromise()
	p.Resolve(event.Success, "")
	p.Resolve(event.Fail, "should be ignored")

	status, reason := p.State()
	assert.Equal(t, event.Success, status)
	assert.Empty(t, reason)
}

func TestPromiseWaitBlocksUntilResolved(t *testing.T) {
	p := event.NewPromise()
	done := make(chan struct{})
	go func() {
		status, reason := p.Wait()
		assert.Equal(t, event.Fail, status)
		assert.Equal(t, "dropped", reason)
		close(done)
	}()
	p.Resolve(event.Fail, "dropped")
	<-done
}
