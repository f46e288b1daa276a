package eventbus

import (
	"sync"
	"testing"
	"time"
)

func TestBus_SubscribeAndPublish(t *testing.T) {
	bus := New()
	defer bus.Close()

	received := bus.Subscribe(TypeNewDUIDs)

	bus.Publish(Event{
		Type:    TypeNewDUIDs,
		Dataset: "scada5",
		Data:    []string{"NEWUNIT1"},
	})

	select {
	case evt := <-received:
		if evt.Type != TypeNewDUIDs {
			t.Errorf("expected %s, got %s", TypeNewDUIDs, evt.Type)
		}
		if evt.Dataset != "scada5" {
			t.Errorf("expected dataset scada5, got %s", evt.Dataset)
		}
		if evt.Timestamp.IsZero() {
			t.Error("publish should stamp a zero timestamp")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_MultipleTypesOneChannel(t *testing.T) {
	bus := New()
	defer bus.Close()

	received := bus.Subscribe(TypeCycleSummary, TypeNewDUIDs)

	bus.Publish(Event{Type: TypeCycleSummary})
	bus.Publish(Event{Type: TypeNewDUIDs})

	for i := 0; i < 2; i++ {
		select {
		case <-received:
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive both event types")
		}
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch1 := bus.Subscribe(TypeCycleSummary)
	ch2 := bus.Subscribe(TypeCycleSummary)

	bus.Publish(Event{Type: TypeCycleSummary})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBus_TypeFiltering(t *testing.T) {
	bus := New()
	defer bus.Close()

	cycleCh := bus.Subscribe(TypeCycleSummary)
	duidCh := bus.Subscribe(TypeNewDUIDs)

	bus.Publish(Event{Type: TypeCycleSummary})

	select {
	case <-cycleCh:
	case <-time.After(time.Second):
		t.Fatal("cycle subscriber did not receive event")
	}

	select {
	case <-duidCh:
		t.Fatal("duid subscriber should NOT receive cycle.summary event")
	case <-time.After(50 * time.Millisecond):
		// good
	}
}

func TestBus_PublishBatch(t *testing.T) {
	bus := New()
	defer bus.Close()

	received := bus.Subscribe(TypeCycleSummary)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			bus.Publish(Event{Type: TypeCycleSummary, Data: n})
		}(i)
	}
	wg.Wait()

	time.Sleep(100 * time.Millisecond)
	if len(received) != 50 {
		t.Errorf("expected 50 events, got %d", len(received))
	}
}

func TestBus_SlowSubscriberDrops(t *testing.T) {
	bus := New()
	defer bus.Close()

	bus.Subscribe(TypeCycleSummary) // never drained

	for i := 0; i < subscriberBuffer+5; i++ {
		bus.Publish(Event{Type: TypeCycleSummary, Data: i})
	}

	if got := bus.Dropped(); got != 5 {
		t.Errorf("expected 5 dropped events, got %d", got)
	}
}

func TestBus_PublishAfterClose(t *testing.T) {
	bus := New()

	received := bus.Subscribe(TypeCycleSummary)
	bus.Close()

	bus.Publish(Event{Type: TypeCycleSummary})

	select {
	case <-received:
		t.Fatal("publish after close should be a no-op")
	case <-time.After(50 * time.Millisecond):
	}
}
