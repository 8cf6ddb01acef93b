package eventbus

import "testing"

func TestPublishFanOutToAllSubscribers(t *testing.T) {
	b := New(4)
	sub1 := b.Subscribe()
	sub2 := b.Subscribe()
	defer sub1.Unsubscribe()
	defer sub2.Unsubscribe()

	ev := Event{Action: ActionStarting, Kind: KindCargo, Key: "hello"}
	b.Publish(ev)

	got1 := <-sub1.Events()
	got2 := <-sub2.Events()
	if got1 != ev || got2 != ev {
		t.Fatalf("expected both subscribers to receive %+v, got %+v and %+v", ev, got1, got2)
	}
}

func TestPublishPreservesEmissionOrder(t *testing.T) {
	b := New(8)
	sub := b.Subscribe()
	defer sub.Unsubscribe()

	b.Publish(Event{Action: ActionStarting, Kind: KindCargo, Key: "a"})
	b.Publish(Event{Action: ActionStarted, Kind: KindCargo, Key: "a"})

	first := <-sub.Events()
	second := <-sub.Events()
	if first.Action != ActionStarting || second.Action != ActionStarted {
		t.Fatalf("expected Starting then Started, got %s then %s", first.Action, second.Action)
	}
}

func TestPublishDropsOnFullQueueWithoutBlocking(t *testing.T) {
	b := New(1)
	sub := b.Subscribe()
	defer sub.Unsubscribe()

	b.Publish(Event{Action: ActionStarting, Kind: KindCargo, Key: "a"})
	b.Publish(Event{Action: ActionStarted, Kind: KindCargo, Key: "a"}) // queue full, dropped

	if got := sub.Dropped(); got != 1 {
		t.Fatalf("expected 1 dropped event, got %d", got)
	}
	<-sub.Events()
}

func TestUnsubscribeRemovesSubscriber(t *testing.T) {
	b := New(4)
	sub := b.Subscribe()
	if b.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", b.SubscriberCount())
	}
	sub.Unsubscribe()
	if b.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers after unsubscribe, got %d", b.SubscriberCount())
	}
}
