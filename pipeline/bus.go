package pipeline

import (
	"context"
	"sync"
)

// BusSyncReply is the verdict of a sync handler.
type BusSyncReply uint8

const (
	// BusPass queues the message for Pop.
	BusPass BusSyncReply = iota
	// BusDrop discards the message.
	BusDrop
)

// SyncHandler is called for every posted message, on the posting
// goroutine, before the message is queued.
type SyncHandler func(bus *Bus, msg *Message) BusSyncReply

// Bus carries messages from elements to the application.
type Bus struct {
	mu      sync.Mutex
	handler SyncHandler
	queue   []*Message
	notify  chan struct{}
}

// NewBus returns an empty bus without a sync handler.
func NewBus() *Bus {
	return &Bus{notify: make(chan struct{}, 1)}
}

// SetSyncHandler installs h, replacing any previous handler. nil removes
// it.
func (b *Bus) SetSyncHandler(h SyncHandler) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

// Post runs the sync handler on the calling goroutine and queues msg
// unless the handler dropped it. Handlers may post further messages.
func (b *Bus) Post(msg *Message) {
	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()

	if h != nil && h(b, msg) == BusDrop {
		return
	}

	b.mu.Lock()
	b.queue = append(b.queue, msg)
	b.mu.Unlock()
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Pop returns the oldest queued message, waiting until one is posted or
// ctx is done.
func (b *Bus) Pop(ctx context.Context) (*Message, error) {
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			msg := b.queue[0]
			b.queue[0] = nil
			b.queue = b.queue[1:]
			b.mu.Unlock()
			return msg, nil
		}
		b.mu.Unlock()

		select {
		case <-b.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Pending returns the number of queued messages.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}
