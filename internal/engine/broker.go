package engine

import (
	"sync"

	"github.com/seantiz/puppilot/internal/model"
)

// subscriberBufferSize is the channel buffer for each progress subscriber.
// Events are dropped if a subscriber falls this far behind.
const subscriberBufferSize = 64

// Event is one slot change of a sail, as streamed to subscribers.
type Event struct {
	SailID    string         `json:"sailId"`
	Index     int            `json:"index"`
	RoutineID string         `json:"routineId"`
	Job       model.JobState `json:"job"`
	Done      int            `json:"done"`
	Total     int            `json:"total"`
}

// Broker fans out per-sail progress events to subscribers.
// It is safe for concurrent use.
//
// Closed topics are retained as markers so that late subscribers (those
// subscribing after a sail completes) receive a closed channel instead of
// blocking forever.
type Broker struct {
	mu     sync.Mutex
	topics map[string]*topic
}

type topic struct {
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewBroker creates a new progress broker.
func NewBroker() *Broker {
	return &Broker{
		topics: make(map[string]*topic),
	}
}

// Subscribe returns a channel that receives events for the given sail and an
// unsubscribe function. If the sail has already completed (Close was called),
// the returned channel is immediately closed.
func (b *Broker) Subscribe(sailID string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[sailID]
	if !ok {
		t = &topic{subs: make(map[int]chan Event)}
		b.topics[sailID] = t
	}

	ch := make(chan Event, subscriberBufferSize)
	if t.closed {
		close(ch)
		return ch, func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(t.subs, id)
	}
}

// Publish sends an event to all subscribers of ev.SailID.
// Events are dropped for subscribers whose buffers are full.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[ev.SailID]
	if !ok || t.closed {
		return
	}

	for _, ch := range t.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; never block a routine on it.
		}
	}
}

// Close signals that the sail has completed. All subscriber channels are
// closed and future Subscribe calls return a closed channel.
func (b *Broker) Close(sailID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[sailID]
	if !ok {
		b.topics[sailID] = &topic{subs: make(map[int]chan Event), closed: true}
		return
	}

	t.closed = true
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
}
