// Package events carries session updates from controllers to live
// subscribers.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// subscriberBuffer is how many events a slow subscriber may lag behind
// before new events are dropped for it.
const subscriberBuffer = 32

// Bus fans events out to subscribers of a session.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan *EventWithData
	nextID int
	now    func() time.Time
	log    zerolog.Logger
}

// NewBus creates an empty bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[string]map[int]chan *EventWithData),
		now:  time.Now,
		log:  log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe returns a channel of events for session and a cancel func that
// unsubscribes and closes the channel. Cancel is safe to call twice.
func (b *Bus) Subscribe(session string) (<-chan *EventWithData, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan *EventWithData, subscriberBuffer)
	if b.subs[session] == nil {
		b.subs[session] = make(map[int]chan *EventWithData)
	}
	b.subs[session][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() { b.unsubscribe(session, id) })
	}
}

func (b *Bus) unsubscribe(session string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[session]
	ch, ok := subs[id]
	if !ok {
		return
	}
	delete(subs, id)
	close(ch)
	if len(subs) == 0 {
		delete(b.subs, session)
	}
}

// Publish delivers data to every subscriber of session without blocking.
// Subscribers whose buffer is full miss the event. A SessionClosed event also
// ends every subscription to session: channels are closed after the event is
// offered, so even a lagging subscriber learns the stream is over.
func (b *Bus) Publish(session string, data EventData) {
	event := &EventWithData{
		Type:      data.EventType(),
		Timestamp: b.now(),
		Session:   session,
		Data:      data,
	}

	if event.Type == SessionClosed {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[session]
		b.deliver(session, subs, event)
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subs, session)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	b.deliver(session, b.subs[session], event)
}

func (b *Bus) deliver(session string, subs map[int]chan *EventWithData, event *EventWithData) {
	for id, ch := range subs {
		select {
		case ch <- event:
		default:
			b.log.Warn().
				Str("session", session).
				Int("subscriber", id).
				Str("event_type", string(event.Type)).
				Msg("Subscriber lagging, event dropped")
		}
	}
}

// Subscribers returns how many subscribers a session has.
func (b *Bus) Subscribers(session string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[session])
}
