package plugins

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Ikey168/Modulo-sub007/internal/logger"
)

// defaultSubscriberQueueSize bounds how many undelivered events a single
// subscriber can accumulate before the oldest is dropped.
const defaultSubscriberQueueSize = 256

var (
	eventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plugin_event_bus_dropped_total",
		Help: "Events dropped because a subscriber's queue was full.",
	}, []string{"event_type", "plugin_id"})

	handlerFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plugin_event_bus_handler_failures_total",
		Help: "Event handler invocations that returned an error or panicked.",
	}, []string{"event_type", "plugin_id"})
)

func init() {
	prometheus.MustRegister(eventsDropped, handlerFailures)
}

// SubscriptionHandle identifies a single subscribe call so it can be
// unsubscribed later. Opaque to callers.
type SubscriptionHandle string

// subscription is one (plugin id, handler) pair on a single event type,
// with its own bounded delivery queue and worker goroutine.
type subscription struct {
	handle    SubscriptionHandle
	eventType string
	pluginID  string
	handler   EventHandler

	queue chan Event
	done  chan struct{}
}

// EventBus maps event type to an ordered sequence of subscribers and fans
// events out to each of them independently and concurrently. Delivery to
// a given subscriber is FIFO; delivery across different subscribers is
// not ordered relative to each other.
type EventBus struct {
	mu   sync.RWMutex
	subs map[string][]*subscription // keyed by event type
	seq  uint64
}

// NewEventBus constructs an empty event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		subs: make(map[string][]*subscription),
	}
}

// Subscribe registers handler for eventType on behalf of pluginID and
// starts its delivery worker. Returns a handle usable with Unsubscribe.
func (b *EventBus) Subscribe(eventType, pluginID string, handler EventHandler) SubscriptionHandle {
	sub := &subscription{
		handle:    SubscriptionHandle(uuid.NewString()),
		eventType: eventType,
		pluginID:  pluginID,
		handler:   handler,
		queue:     make(chan Event, defaultSubscriberQueueSize),
		done:      make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], sub)
	b.mu.Unlock()

	go b.deliverLoop(sub)

	logger.EventBus().Debug().
		Str("event_type", eventType).
		Str("plugin_id", pluginID).
		Msg("subscribed")

	return sub.handle
}

// Unsubscribe removes a subscription by handle. Idempotent: unsubscribing
// an unknown or already-removed handle is a no-op.
func (b *EventBus) Unsubscribe(handle SubscriptionHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subs {
		for i, s := range subs {
			if s.handle == handle {
				b.subs[eventType] = append(subs[:i], subs[i+1:]...)
				close(s.done)
				return
			}
		}
	}
}

// UnsubscribeAll removes every subscription owned by pluginID, used on
// stop and uninstall.
func (b *EventBus) UnsubscribeAll(pluginID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subs {
		kept := subs[:0]
		for _, s := range subs {
			if s.pluginID == pluginID {
				close(s.done)
				continue
			}
			kept = append(kept, s)
		}
		b.subs[eventType] = kept
	}
}

// Publish delivers event to every current subscriber of event.Type.
// Publish never blocks beyond enqueueing: a subscriber whose queue is
// full has its oldest unprocessed event dropped and counted, never the
// publisher stalled.
func (b *EventBus) Publish(eventType string, origin string, payload interface{}) Event {
	event := Event{
		Type:     eventType,
		Origin:   origin,
		Sequence: atomic.AddUint64(&b.seq, 1),
		Payload:  payload,
	}

	b.mu.RLock()
	subs := append([]*subscription(nil), b.subs[eventType]...)
	b.mu.RUnlock()

	for _, s := range subs {
		enqueue(s, event)
	}
	return event
}

func enqueue(s *subscription, event Event) {
	select {
	case s.queue <- event:
		return
	default:
	}

	// Queue full: drop the oldest pending event, then enqueue the new
	// one. A concurrent publisher can refill the freed slot between the
	// two selects; the new event is then dropped instead, and counted.
	select {
	case <-s.queue:
		eventsDropped.WithLabelValues(event.Type, s.pluginID).Inc()
	default:
	}
	select {
	case s.queue <- event:
	default:
		eventsDropped.WithLabelValues(event.Type, s.pluginID).Inc()
	}
}

func (b *EventBus) deliverLoop(s *subscription) {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.queue:
			if !ok {
				return
			}
			invokeHandler(s, event)
		}
	}
}

// invokeHandler calls the subscriber's handler with panic recovery. A
// panicking or erroring handler never prevents delivery to other
// subscribers and is never propagated to the publisher; it is logged and
// counted as a metric instead.
func invokeHandler(s *subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			handlerFailures.WithLabelValues(event.Type, s.pluginID).Inc()
			logger.EventBus().Error().
				Str("event_type", event.Type).
				Str("plugin_id", s.pluginID).
				Interface("panic", r).
				Msg("event handler panicked")
		}
	}()

	if err := s.handler.OnEvent(context.Background(), event); err != nil {
		handlerFailures.WithLabelValues(event.Type, s.pluginID).Inc()
		logger.EventBus().Warn().
			Err(err).
			Str("event_type", event.Type).
			Str("plugin_id", s.pluginID).
			Msg("event handler returned error")
	}
}
