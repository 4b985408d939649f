package eventbus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	bus := New()
	id, events := bus.Subscribe(8)
	defer bus.Unsubscribe(id)

	bus.PublishNew(EventTypeTaskCreated, "T1", map[string]string{"priority": "HIGH"})

	select {
	case event := <-events:
		if event.Type != EventTypeTaskCreated {
			t.Errorf("expected task.created, got %s", event.Type)
		}
		if event.ResourceID != "T1" {
			t.Errorf("expected resource T1, got %s", event.ResourceID)
		}
		if event.Metadata["priority"] != "HIGH" {
			t.Errorf("unexpected metadata: %v", event.Metadata)
		}
		if event.ID == "" {
			t.Error("expected a generated event id")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	id, events := bus.Subscribe(1)
	bus.Unsubscribe(id)

	if _, ok := <-events; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
	// Publishing after unsubscribe must not panic.
	bus.PublishNew(EventTypeTaskUpdated, "T1", nil)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := New()
	id, events := bus.Subscribe(1)
	defer bus.Unsubscribe(id)

	bus.PublishNew(EventTypeTaskCreated, "T1", nil)
	// Buffer is full now; this publish must not block.
	done := make(chan struct{})
	go func() {
		bus.PublishNew(EventTypeTaskCreated, "T2", nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	event := <-events
	if event.ResourceID != "T1" {
		t.Errorf("expected the first event to survive, got %s", event.ResourceID)
	}
	select {
	case event := <-events:
		t.Errorf("expected the second event to be dropped, got %s", event.ResourceID)
	default:
	}
}
