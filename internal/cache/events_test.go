package cache

import (
	"bytes"
	"strconv"
	"testing"
	"time"

	"github.com/dmaytorres/trackvault/internal/catalog"
	"github.com/dmaytorres/trackvault/internal/domain"
)

func TestBus_DropsOldestForSlowSubscriber(t *testing.T) {
	bus := NewBus()
	id, ch := bus.Subscribe()
	defer bus.Unsubscribe(id)

	total := subscriberBuffer + 10
	for i := 0; i < total; i++ {
		bus.Publish(Event{Type: EventCachingProgress, TrackID: strconv.Itoa(i)})
	}

	received := make([]Event, 0, subscriberBuffer)
drain:
	for {
		select {
		case ev := <-ch:
			received = append(received, ev)
		default:
			break drain
		}
	}

	if len(received) != subscriberBuffer {
		t.Fatalf("Expected %d buffered events, got %d", subscriberBuffer, len(received))
	}
	// The oldest events were shed; the newest one is always kept.
	if got := received[len(received)-1].TrackID; got != strconv.Itoa(total-1) {
		t.Errorf("Expected last event %d, got %s", total-1, got)
	}
	if got := received[0].TrackID; got != strconv.Itoa(total-subscriberBuffer) {
		t.Errorf("Expected oldest surviving event %d, got %s", total-subscriberBuffer, got)
	}
}

func TestEngine_EventLifecycleOrdering(t *testing.T) {
	provider := catalog.NewMockProvider()
	// Large enough for several progress steps.
	provider.SetPayload("track_ev", bytes.Repeat([]byte("p"), 4*1024*1024))

	engine, _ := setupEngine(t, provider, nil)

	id, events := engine.Events().Subscribe()
	defer engine.Events().Unsubscribe(id)

	if err := engine.Request("track_ev", domain.TrackMetadata{}); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	var seen []Event
	timeout := time.After(10 * time.Second)
collect:
	for {
		select {
		case ev := <-events:
			if ev.TrackID != "track_ev" {
				continue
			}
			seen = append(seen, ev)
			if ev.Type == EventCachingCompleted || ev.Type == EventCachingFailed {
				break collect
			}
		case <-timeout:
			t.Fatal("Timed out waiting for terminal event")
		}
	}

	if len(seen) < 2 {
		t.Fatalf("Expected at least started and completed events, got %d", len(seen))
	}
	if seen[0].Type != EventCachingStarted {
		t.Errorf("Expected first event caching_started, got %s", seen[0].Type)
	}
	if last := seen[len(seen)-1]; last.Type != EventCachingCompleted {
		t.Errorf("Expected terminal event caching_completed, got %s", last.Type)
	}

	lastPercent := -1
	for _, ev := range seen {
		if ev.Type != EventCachingProgress {
			continue
		}
		if ev.Percent < lastPercent {
			t.Errorf("Progress went backwards: %d after %d", ev.Percent, lastPercent)
		}
		lastPercent = ev.Percent
	}
}

func TestEngine_FailedEventCarriesReason(t *testing.T) {
	provider := catalog.NewMockProvider()
	provider.FailWith("track_fail", domain.ErrSourceUnavailable)

	engine, _ := setupEngine(t, provider, nil)

	id, events := engine.Events().Subscribe()
	defer engine.Events().Unsubscribe(id)

	if err := engine.Request("track_fail", domain.TrackMetadata{}); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type != EventCachingFailed {
				continue
			}
			if ev.Error == "" {
				t.Error("Expected failure event to carry the reason")
			}
			return
		case <-timeout:
			t.Fatal("Timed out waiting for failure event")
		}
	}
}
