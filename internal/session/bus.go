package session

import "sync"

// EventKind identifies a bus notification.
type EventKind int

const (
	// EventAttendanceChanged fires after a capture left a period marked.
	EventAttendanceChanged EventKind = iota
	// EventRefreshed fires after catalog and ledger were replaced.
	EventRefreshed
	// EventUnauthorized fires when the backend rejected the token.
	EventUnauthorized
	// EventPeriodChanged fires when a period opens or closes. PeriodID is
	// zero when nothing is open.
	EventPeriodChanged
)

func (k EventKind) String() string {
	switch k {
	case EventAttendanceChanged:
		return "attendance-updated"
	case EventRefreshed:
		return "refreshed"
	case EventUnauthorized:
		return "unauthorized"
	case EventPeriodChanged:
		return "period-changed"
	default:
		return "unknown"
	}
}

// Event is one bus notification.
type Event struct {
	Kind     EventKind
	PeriodID int64
}

// Bus fans events out to subscribers. Publish never blocks; a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan Event
	closed bool
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a listener. The returned func unsubscribes and closes
// the channel; calling it more than once is safe.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Publish delivers e to every subscriber with room for it.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Close drops every subscriber. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
