package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan ParameterAppliedEvent, 1)

	unsub := bus.Subscribe(func(e ParameterAppliedEvent) {
		received <- e
	})
	defer unsub()

	event := ParameterAppliedEvent{
		Stream:    "main",
		Role:      "video-capture",
		Key:       "bitrate",
		Value:     "500000",
		Timestamp: "2025-01-27T10:30:00Z",
	}
	bus.Publish(event)

	got := <-received
	if got.Key != event.Key || got.Stream != event.Stream {
		t.Errorf("Expected %s on %s, got %s on %s", event.Key, event.Stream, got.Key, got.Stream)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan InstanceCreatedEvent, 1)
	received2 := make(chan InstanceCreatedEvent, 1)

	unsub1 := bus.Subscribe(func(e InstanceCreatedEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e InstanceCreatedEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(InstanceCreatedEvent{Stream: "main", Replayed: 2})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan DirectiveRejectedEvent, 1)

	unsub := bus.Subscribe(func(e DirectiveRejectedEvent) {
		received <- e
	})

	bus.Publish(DirectiveRejectedEvent{Token: "volume=3"})
	<-received

	unsub()

	bus.Publish(DirectiveRejectedEvent{Token: "volume=4"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	appliedReceived := make(chan bool, 1)
	resetReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ ParameterAppliedEvent) {
		appliedReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ OptionsResetEvent) {
		resetReceived <- true
	})
	defer unsub2()

	bus.Publish(ParameterAppliedEvent{Key: "hflip"})
	<-appliedReceived

	select {
	case <-resetReceived:
		t.Fatal("Reset subscriber should NOT have received ParameterAppliedEvent")
	case <-time.After(10 * time.Millisecond):
	}

	bus.Publish(OptionsResetEvent{Cleared: 1})
	<-resetReceived

	select {
	case <-appliedReceived:
		t.Fatal("Applied subscriber should NOT have received OptionsResetEvent")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)

	unsub := bus.Subscribe(func(_ ClientConnectedEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(ClientConnectedEvent{
					Stream:    "main",
					Timestamp: time.Now().Format(time.RFC3339),
				})
			}
		}()
	}

	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_AllEventTypes(t *testing.T) {
	bus := New()

	tests := []struct {
		name  string
		event Event
	}{
		{"InstanceCreated", InstanceCreatedEvent{Stream: "main"}},
		{"InstanceReleased", InstanceReleasedEvent{Stream: "main", Reason: "idle"}},
		{"ParameterApplied", ParameterAppliedEvent{Key: "bitrate"}},
		{"DirectiveRejected", DirectiveRejectedEvent{Token: "=x"}},
		{"OptionsReset", OptionsResetEvent{Cleared: 3}},
		{"ClientConnected", ClientConnectedEvent{Stream: "video"}},
		{"ClientDisconnected", ClientDisconnectedEvent{Stream: "video"}},
		{"LogEntry", LogEntryEvent{Message: "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(_ *testing.T) {
			received := make(chan Event, 1)

			var unsub func()
			switch tt.event.(type) {
			case InstanceCreatedEvent:
				unsub = bus.Subscribe(func(e InstanceCreatedEvent) { received <- e })
			case InstanceReleasedEvent:
				unsub = bus.Subscribe(func(e InstanceReleasedEvent) { received <- e })
			case ParameterAppliedEvent:
				unsub = bus.Subscribe(func(e ParameterAppliedEvent) { received <- e })
			case DirectiveRejectedEvent:
				unsub = bus.Subscribe(func(e DirectiveRejectedEvent) { received <- e })
			case OptionsResetEvent:
				unsub = bus.Subscribe(func(e OptionsResetEvent) { received <- e })
			case ClientConnectedEvent:
				unsub = bus.Subscribe(func(e ClientConnectedEvent) { received <- e })
			case ClientDisconnectedEvent:
				unsub = bus.Subscribe(func(e ClientDisconnectedEvent) { received <- e })
			case LogEntryEvent:
				unsub = bus.Subscribe(func(e LogEntryEvent) { received <- e })
			}
			defer unsub()

			bus.Publish(tt.event)
			<-received
		})
	}
}

func TestBus_UnknownHandlerIsNoop(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	if unsub == nil {
		t.Fatal("Subscribe should return a callable no-op")
	}
	unsub()
}

func TestEventJSONSerialization(t *testing.T) {
	data, err := json.Marshal(DirectiveRejectedEvent{
		Token:  "leaky=downstream",
		Reason: "stage_not_found",
		Error:  "no audio-queue stage in audio1",
	})
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if _, ok := result["stream"]; ok {
		t.Error("empty stream should be omitted")
	}
	if result["reason"] != "stage_not_found" {
		t.Errorf("reason = %v", result["reason"])
	}
}

func TestFeedCollectsWatchedTypes(t *testing.T) {
	bus := New()
	feed := NewFeed(10)
	Watch[InstanceReleasedEvent](bus, feed)
	Watch[OptionsResetEvent](bus, feed)
	defer feed.Close()

	bus.Publish(InstanceReleasedEvent{Stream: "audio1", Reason: "idle"})
	bus.Publish(ParameterAppliedEvent{Stream: "main"})

	select {
	case got := <-feed.C():
		ev, ok := got.(InstanceReleasedEvent)
		if !ok || ev.Stream != "audio1" {
			t.Fatalf("received %#v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	select {
	case got := <-feed.C():
		t.Errorf("unwatched event delivered: %#v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFeedDropsWhenFull(t *testing.T) {
	bus := New()
	feed := NewFeed(1)
	Watch[OptionsResetEvent](bus, feed)
	defer feed.Close()

	for i := range 3 {
		bus.Publish(OptionsResetEvent{Cleared: i})
	}

	deadline := time.Now().Add(time.Second)
	for feed.Dropped() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := feed.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}
	if len(feed.C()) != 1 {
		t.Errorf("buffered %d events, want 1", len(feed.C()))
	}
}

func TestFeedClose(t *testing.T) {
	bus := New()
	feed := NewFeed(4)
	Watch[OptionsResetEvent](bus, feed)
	feed.Close()
	feed.Close()

	bus.Publish(OptionsResetEvent{Cleared: 1})
	select {
	case got := <-feed.C():
		t.Errorf("event after Close: %#v", got)
	case <-time.After(50 * time.Millisecond):
	}
}
