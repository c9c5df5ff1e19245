package autopilot

import (
	"sync"
	"time"
)

// Event types published to subscribers.
const (
	EventLog    = "log"
	EventUnread = "unread"
	EventStatus = "status"
)

// Event is a side-channel notification for live clients.
type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data"`
}

// UnreadEvent is the payload of an EventUnread.
type UnreadEvent struct {
	Count int `json:"count"`
}

// broker fans events out to subscribers. Slow subscribers drop events rather
// than block the engine.
type broker struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func newBroker() *broker {
	return &broker{subs: make(map[chan Event]struct{})}
}

func (b *broker) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 32)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *broker) publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
