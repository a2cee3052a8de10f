// Package bus carries typed events from background components (the live
// notifier, the settings loader) to the UI event loop. All sends are
// non-blocking: a full subscriber channel drops the event rather than
// stalling the producer.
package bus

import (
	"sync"

	"github.com/infblueocean/flock/internal/feed"
)

// Event is a marker for anything published on the bus.
type Event interface{ event() }

// ItemCreated announces a newly created feed item, either observed by the
// live notifier or posted from another session.
type ItemCreated struct {
	Item feed.Item
}

// ItemDeleted announces a remote deletion observed by the live notifier.
type ItemDeleted struct {
	ItemID int64
}

// SettingsChanged announces that configuration was reloaded on disk. It
// carries the display settings views consume so subscribers need not
// reach back into the config layer.
type SettingsChanged struct {
	ShowCensored bool
}

func (ItemCreated) event()     {}
func (ItemDeleted) event()     {}
func (SettingsChanged) event() {}

// Bus fans events out to subscribers over buffered channels.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	buffer int
	closed bool
}

// New creates a bus whose subscriber channels hold bufferSize events.
func New(bufferSize int) *Bus {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Bus{
		subs:   make(map[int]chan Event),
		buffer: bufferSize,
	}
}

// Subscribe registers a new subscriber. The returned cancel func detaches
// it and closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber. Sends are non-blocking;
// a subscriber that is not draining its channel misses the event.
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
			// Drop - the UI catches up from the store on next render.
		}
	}
}

// Close detaches all subscribers and closes their channels. Publish and
// Subscribe become no-ops afterwards.
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
