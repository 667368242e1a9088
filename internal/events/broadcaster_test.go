package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := NewBroadcaster()
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	defer b.Unsubscribe(ch1)
	defer b.Unsubscribe(ch2)

	b.Publish(Event{Type: EventCreate, Path: "/a.txt"})

	for _, ch := range []chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != EventCreate || ev.Path != "/a.txt" {
				t.Errorf("event = %+v", ev)
			}
			if ev.Timestamp == 0 {
				t.Error("timestamp not set")
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Overfill the buffered channel; Publish must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			b.Publish(Event{Type: EventModify, Path: "/x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()
	if b.Count() != 1 {
		t.Fatalf("count = %d, want 1", b.Count())
	}
	b.Unsubscribe(ch)
	if b.Count() != 0 {
		t.Fatalf("count after unsubscribe = %d, want 0", b.Count())
	}
	if _, ok := <-ch; ok {
		t.Error("channel not closed")
	}
}

func TestMarshalEvent(t *testing.T) {
	data, err := MarshalEvent(Event{Type: EventCommand, CommandID: "abc", Timestamp: 42})
	if err != nil {
		t.Fatalf("MarshalEvent: %v", err)
	}
	var decoded Event
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.CommandID != "abc" || decoded.Timestamp != 42 {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Path != "" {
		t.Errorf("empty path serialized as %q", decoded.Path)
	}
}
