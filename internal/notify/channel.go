package notify

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Channel represents one live notification connection.
//
// Design notes:
// - send is intentionally never closed by the server, so concurrent
//   fan-out can't panic against a closing channel.
// - done signals the connection goroutines to stop; Close is idempotent.
type Channel struct {
	// ID is a ULID, uniform with the rest of the system's ids.
	ID string

	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

// NewChannel constructs a Channel with a bounded send queue.
func NewChannel(queueSize int) *Channel {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Channel{
		ID:   ulid.Make().String(),
		send: make(chan []byte, queueSize),
		done: make(chan struct{}),
	}
}

// TrySend enqueues msg without blocking. It reports false when the channel
// is shutting down or its queue is full; a slow peer never stalls fan-out
// to other channels.
func (c *Channel) TrySend(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// TrySendTimeout is TrySend with a bounded wait, used for the initial
// handshake message where dropping would be surprising.
func (c *Channel) TrySendTimeout(msg []byte, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-c.done:
		return false
	case c.send <- msg:
		return true
	case <-t.C:
		return false
	}
}

// Outbox exposes the send queue to the connection's writer goroutine.
func (c *Channel) Outbox() <-chan []byte { return c.send }

// Done returns a channel closed when the Channel is shutting down.
func (c *Channel) Done() <-chan struct{} { return c.done }

// Close signals shutdown (idempotent). It does NOT close the send queue.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
