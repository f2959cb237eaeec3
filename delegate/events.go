package delegate

import "sync"

type (
	EventKind int

	// Event describes a session change observed on the delegate path.
	Event struct {
		Kind EventKind
		User ExternalUser
	}

	// Broadcaster fans events out to in-process subscribers. There is no
	// ordering guarantee across subscribers and a subscriber that stops
	// draining its channel loses events rather than stalling the rest.
	Broadcaster struct {
		mu   sync.Mutex
		next int
		subs map[int]chan Event
	}
)

const (
	SignedIn EventKind = iota
	SignedOut
	TokenRefreshed
)

const subscriberBuffer = 16

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Event)}
}

// Subscribe registers a new observer. The returned cancel func must be
// called once the observer is done, it closes the channel.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
}

func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
