// Package broadcast mirrors tree commands between engines in one process.
package broadcast

import (
	"context"
	"errors"
	"sync"

	"tableflip.dev/tabtree/pkg/tree"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("broadcast: bus closed")

// Bus fans published commands out to every subscriber. Delivery never
// blocks the publisher: a subscriber whose buffer is full misses the
// command.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan tree.Command
	next   int
	buffer int
	closed bool
}

var _ tree.Broadcaster = (*Bus)(nil)

// New returns a bus whose subscribers buffer up to buffer commands.
func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{subs: make(map[int]chan tree.Command), buffer: buffer}
}

// Publish delivers cmd to the current subscribers.
func (b *Bus) Publish(ctx context.Context, cmd tree.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	for _, ch := range b.subs {
		select {
		case ch <- cmd:
		default:
		}
	}
	return nil
}

// Subscribe streams commands until ctx is done or the bus is closed. The
// channel is closed afterwards.
func (b *Bus) Subscribe(ctx context.Context) (<-chan tree.Command, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	id := b.next
	b.next++
	ch := make(chan tree.Command, b.buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}()
	return ch, nil
}

// Close stops the bus and closes every subscription.
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

// Replayer applies commands received from a peer.
type Replayer interface {
	ApplyRemote(ctx context.Context, cmd tree.Command) tree.Result
}

// Pump replays every command from ch on r until ch closes or ctx is done.
// The optional observe callback sees each command with its result.
func Pump(ctx context.Context, ch <-chan tree.Command, r Replayer, observe func(tree.Command, tree.Result)) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-ch:
			if !ok {
				return
			}
			res := r.ApplyRemote(ctx, cmd)
			if observe != nil {
				observe(cmd, res)
			}
		}
	}
}
