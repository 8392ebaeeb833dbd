// Package changebus implements the in-process notification bus that
// connects persistence writes to the segment observer and processor:
// whenever an operation touches a date range, it publishes that range
// and every subscriber gets a copy on its own channel.
package changebus

import (
	"context"
	"sync"

	"github.com/jengzang/timeline-core/internal/models"
)

// Bus fans a published models.DateInterval out to every subscriber.
// Subscribers that fall behind do not block publishers: each
// subscriber channel is buffered, and a slow reader simply drops the
// oldest-pending notification rather than stalling the bus.
type Bus struct {
	mu          sync.Mutex
	subscribers map[chan models.DateInterval]struct{}
	bufferSize  int
}

// New creates a change bus whose per-subscriber channels buffer up to
// bufferSize pending notifications.
func New(bufferSize int) *Bus {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Bus{
		subscribers: make(map[chan models.DateInterval]struct{}),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a new listener and returns its channel. The
// channel is closed and deregistered automatically when ctx is done.
func (b *Bus) Subscribe(ctx context.Context) <-chan models.DateInterval {
	ch := make(chan models.DateInterval, b.bufferSize)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subscribers, ch)
		b.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Publish notifies every current subscriber that interval changed. A
// subscriber whose buffer is full has its oldest pending notification
// dropped to make room, so Publish never blocks.
func (b *Bus) Publish(interval models.DateInterval) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers {
		select {
		case ch <- interval:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- interval:
			default:
			}
		}
	}
}
