package plugins

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu       sync.Mutex
	received []Event
	done     chan struct{}
	want     int
}

func newRecordingHandler(want int) *recordingHandler {
	return &recordingHandler{done: make(chan struct{}), want: want}
}

func (h *recordingHandler) OnEvent(ctx context.Context, event Event) error {
	h.mu.Lock()
	h.received = append(h.received, event)
	n := len(h.received)
	h.mu.Unlock()
	if n == h.want {
		close(h.done)
	}
	return nil
}

func (h *recordingHandler) events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Event, len(h.received))
	copy(out, h.received)
	return out
}

func TestEventBus_DeliversInFIFOOrderPerSubscriber(t *testing.T) {
	bus := NewEventBus()
	handler := newRecordingHandler(5)
	bus.Subscribe("note.created", "plugin-a", handler)

	for i := 0; i < 5; i++ {
		bus.Publish("note.created", SystemOrigin, i)
	}

	select {
	case <-handler.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	events := handler.events()
	require.Len(t, events, 5)
	for i, e := range events {
		assert.Equal(t, i, e.Payload)
	}
}

func TestEventBus_PanickingHandlerDoesNotBlockOtherSubscribers(t *testing.T) {
	bus := NewEventBus()

	panicker := &panicHandler{done: make(chan struct{})}
	bus.Subscribe("note.created", "plugin-panic", panicker)

	ok := newRecordingHandler(1)
	bus.Subscribe("note.created", "plugin-ok", ok)

	bus.Publish("note.created", SystemOrigin, "payload")

	select {
	case <-ok.done:
	case <-time.After(2 * time.Second):
		t.Fatal("healthy subscriber never received event after sibling panicked")
	}
}

type panicHandler struct {
	done chan struct{}
}

func (p *panicHandler) OnEvent(ctx context.Context, event Event) error {
	defer close(p.done)
	panic("boom")
}

func TestEventBus_PublishDoesNotBlockWhenSubscriberQueueFull(t *testing.T) {
	bus := NewEventBus()
	blocker := &blockingHandler{unblock: make(chan struct{})}
	bus.Subscribe("note.created", "plugin-slow", blocker)

	// Fill the queue well past its bound while the single worker is stuck
	// on the first event.
	for i := 0; i < defaultSubscriberQueueSize+10; i++ {
		bus.Publish("note.created", SystemOrigin, i)
	}

	close(blocker.unblock)
	// No assertion beyond "this doesn't deadlock or panic": Publish must
	// never block on a full subscriber queue.
}

type blockingHandler struct {
	unblock chan struct{}
	once    sync.Once
}

func (b *blockingHandler) OnEvent(ctx context.Context, event Event) error {
	b.once.Do(func() {
		<-b.unblock
	})
	return nil
}

func TestEventBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewEventBus()
	handler := newRecordingHandler(1)
	handle := bus.Subscribe("note.created", "plugin-a", handler)

	bus.Unsubscribe(handle)
	bus.Publish("note.created", SystemOrigin, "after-unsubscribe")

	select {
	case <-handler.done:
		t.Fatal("handler received event after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEventBus_UnsubscribeAllRemovesEveryEventType(t *testing.T) {
	bus := NewEventBus()
	handler := newRecordingHandler(2)
	bus.Subscribe("note.created", "plugin-a", handler)
	bus.Subscribe("note.deleted", "plugin-a", handler)

	bus.UnsubscribeAll("plugin-a")

	bus.Publish("note.created", SystemOrigin, nil)
	bus.Publish("note.deleted", SystemOrigin, nil)

	select {
	case <-handler.done:
		t.Fatal("handler received events after UnsubscribeAll")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEventBus_PublishAssignsMonotonicSequence(t *testing.T) {
	bus := NewEventBus()
	var last uint64
	for i := 0; i < 10; i++ {
		e := bus.Publish("note.created", SystemOrigin, nil)
		assert.Greater(t, e.Sequence, last)
		last = e.Sequence
	}
}

func TestEventBus_ConcurrentPublishIsSafe(t *testing.T) {
	bus := NewEventBus()
	var count int64
	handler := &countingHandler{count: &count}
	bus.Subscribe("note.created", "plugin-a", handler)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish("note.created", SystemOrigin, nil)
		}()
	}
	wg.Wait()
}

type countingHandler struct {
	count *int64
}

func (c *countingHandler) OnEvent(ctx context.Context, event Event) error {
	atomic.AddInt64(c.count, 1)
	return nil
}
