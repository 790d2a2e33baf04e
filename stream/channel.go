package stream

import (
	"context"
	"errors"
	"sync"
)

// DefaultBufferSize is the number of tuples a Channel holds before Write blocks.
const DefaultBufferSize = 16

var (
	// ErrClosed is returned by Write once the producer has closed the channel.
	ErrClosed = errors.New("stream: channel closed")
	// ErrAborted is the abort cause used when none is given.
	ErrAborted = errors.New("stream: channel aborted")
)

// Channel is a bounded, ordered conduit of tuples between one producer and one
// consumer. It is bound to a run context: cancelling that context unblocks
// every pending Write and Next.
//
// Close ends the stream cleanly after buffered tuples are read. Abort ends it
// immediately; the consumer observes the abort cause instead of a clean end.
type Channel struct {
	ctx      context.Context
	items    chan Tuple
	aborting chan struct{}

	// mu orders writers (read lock) against Close (write lock).
	mu     sync.RWMutex
	closed bool

	abortOnce sync.Once
	cause     error
}

// NewChannel returns an open channel holding up to size buffered tuples.
func NewChannel(ctx context.Context, size int) *Channel {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Channel{
		ctx:      ctx,
		items:    make(chan Tuple, size),
		aborting: make(chan struct{}),
	}
}

// FromTuples returns a closed channel pre-filled with tuples.
func FromTuples(ctx context.Context, tuples []Tuple) *Channel {
	c := NewChannel(ctx, max(len(tuples), 1))
	for _, t := range tuples {
		c.items <- t
	}
	_ = c.Close()
	return c
}

// Write appends t, blocking until the consumer has made room.
func (c *Channel) Write(t Tuple) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case <-c.aborting:
		return c.cause
	default:
	}
	select {
	case c.items <- t:
		return nil
	case <-c.aborting:
		return c.cause
	case <-c.ctx.Done():
		return context.Cause(c.ctx)
	}
}

// Close marks the end of the stream. Closing twice is a no-op.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.items)
	return nil
}

// Abort stops the channel with err as the cause. Only the first cause is kept.
func (c *Channel) Abort(err error) {
	if err == nil {
		err = ErrAborted
	}
	c.abortOnce.Do(func() {
		c.cause = err
		close(c.aborting)
	})
}

// Aborted reports the abort cause, or nil while the channel has not been aborted.
func (c *Channel) Aborted() error {
	select {
	case <-c.aborting:
		return c.cause
	default:
		return nil
	}
}

// Next returns the next tuple, blocking until one is written, the channel is
// closed, or the channel is aborted.
func (c *Channel) Next(ctx context.Context) (Tuple, bool, error) {
	select {
	case t, ok := <-c.items:
		if !ok {
			return Tuple{}, false, nil
		}
		return t, true, nil
	case <-c.aborting:
		return Tuple{}, false, c.cause
	case <-c.ctx.Done():
		return Tuple{}, false, context.Cause(c.ctx)
	case <-ctx.Done():
		return Tuple{}, false, context.Cause(ctx)
	}
}

// Reader returns the consumer side of c. Closing the reader aborts the channel
// so a blocked producer is released.
func (c *Channel) Reader() Iterator[Tuple] {
	return &channelReader{ch: c}
}

type channelReader struct {
	ch *Channel
}

func (r *channelReader) Next(ctx context.Context) (Tuple, bool, error) {
	return r.ch.Next(ctx)
}

func (r *channelReader) Close() error {
	r.ch.Abort(ErrAborted)
	return nil
}
