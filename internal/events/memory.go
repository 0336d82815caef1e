package events

import (
	"context"
	"sync"
)

// MemoryBroker fans events out to subscribers in the same process. Slow
// subscribers miss events rather than block publishers.
type MemoryBroker struct {
	mu     sync.Mutex
	subs   map[string]map[chan Event]struct{}
	buffer int
}

// NewMemoryBroker creates a MemoryBroker whose subscription channels hold
// buffer events.
func NewMemoryBroker(buffer int) *MemoryBroker {
	if buffer <= 0 {
		buffer = 16
	}
	return &MemoryBroker{subs: make(map[string]map[chan Event]struct{}), buffer: buffer}
}

// Publish delivers ev to every subscriber of ev.UserID that has room.
func (b *MemoryBroker) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[ev.UserID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscription for userID until ctx is done.
func (b *MemoryBroker) Subscribe(ctx context.Context, userID string) (<-chan Event, error) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan Event]struct{})
	}
	b.subs[userID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[userID], ch)
		if len(b.subs[userID]) == 0 {
			delete(b.subs, userID)
		}
		b.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// Subscribers returns how many live subscriptions userID has.
func (b *MemoryBroker) Subscribers(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[userID])
}
