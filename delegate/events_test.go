package delegate

import (
	"testing"
	"time"
)

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	b := NewBroadcaster()
	first, cancelFirst := b.Subscribe()
	second, cancelSecond := b.Subscribe()
	defer cancelFirst()
	defer cancelSecond()

	b.Publish(Event{Kind: SignedIn, User: ExternalUser{ID: "ext-1"}})
	for _, ch := range []<-chan Event{first, second} {
		select {
		case ev := <-ch:
			if ev.Kind != SignedIn || ev.User.ID != "ext-1" {
				t.Fatalf("unexpected event %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber never received the event")
		}
	}
}

func TestCancelClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()
	cancel()
	if _, open := <-ch; open {
		t.Fatal("channel should be closed after cancel")
	}
	// double cancel must not panic
	cancel()
	b.Publish(Event{Kind: SignedOut})
}

func TestStalledSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBroadcaster()
	_, cancel := b.Subscribe() // never drained
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*2; i++ {
			b.Publish(Event{Kind: TokenRefreshed})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a stalled subscriber")
	}
}
