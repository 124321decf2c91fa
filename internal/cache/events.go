package cache

import (
	"sync"
)

type EventType string

const (
	EventCachingStarted   EventType = "caching_started"
	EventCachingProgress  EventType = "caching_progress"
	EventCachingCompleted EventType = "caching_completed"
	EventCachingFailed    EventType = "caching_failed"
	EventEntryEvicted     EventType = "entry_evicted"
	EventCacheCleared     EventType = "cache_cleared"
)

// Event is one lifecycle notification. For a given track id, progress
// percents are non-decreasing and a completed/failed event is always the
// last one of its lifecycle instance.
type Event struct {
	Type            EventType `json:"type"`
	TrackID         string    `json:"track_id,omitempty"`
	Percent         int       `json:"percent,omitempty"`
	BytesDownloaded int64     `json:"bytes_downloaded,omitempty"`
	TotalBytes      int64     `json:"total_bytes,omitempty"`
	SizeBytes       int64     `json:"size_bytes,omitempty"`
	Error           string    `json:"error,omitempty"`
}

const subscriberBuffer = 64

// Bus is an owned subscribe/notify store, constructed once and passed by
// reference to consumers. No package-level state.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a listener. The returned channel is closed on
// Unsubscribe.
func (b *Bus) Subscribe() (int, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch
	return id, ch
}

func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish delivers to every subscriber without blocking the caller. A slow
// subscriber loses its oldest buffered event, never the incoming one, so
// ordering within what it does see is preserved and terminal events are
// kept.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		for {
			select {
			case ch <- ev:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}
