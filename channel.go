package gocoord

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"
)

// chanState is the queue shared by all senders and the single receiver.
type chanState[T any] struct {
	mu           sync.Mutex
	queue        []T
	head         int
	senders      int
	receiverGone bool

	// ready holds at most one pending wake-up for the receiver.
	ready chan struct{}
}

func (s *chanState[T]) notify() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Sender is one producer handle onto an unbounded channel. Additional
// producers are created with Clone; the channel is closed for the receiver
// once every Sender has been closed.
type Sender[T any] struct {
	state  *chanState[T]
	closed atomic.Bool
}

// Receiver is the single consumer of a channel.
type Receiver[T any] struct {
	state  *chanState[T]
	closed atomic.Bool
}

// NewChannel creates an unbounded multi-producer, single-consumer channel and
// returns its first sender and its receiver.
func NewChannel[T any]() (*Sender[T], *Receiver[T]) {
	s := &chanState[T]{
		senders: 1,
		ready:   make(chan struct{}, 1),
	}
	return &Sender[T]{state: s}, &Receiver[T]{state: s}
}

// Send enqueues value without blocking. It returns a *SendError wrapping
// ErrChannelClosed if the receiver has been closed. Sending on a closed
// Sender panics.
func (tx *Sender[T]) Send(value T) error {
	if tx.closed.Load() {
		panic("gocoord: send on closed sender")
	}
	s := tx.state
	s.mu.Lock()
	if s.receiverGone {
		s.mu.Unlock()
		return &SendError[T]{Value: value}
	}
	s.queue = append(s.queue, value)
	s.mu.Unlock()
	s.notify()
	return nil
}

// Clone returns a new Sender onto the same channel.
func (tx *Sender[T]) Clone() *Sender[T] {
	if tx.closed.Load() {
		panic("gocoord: clone of closed sender")
	}
	s := tx.state
	s.mu.Lock()
	s.senders++
	s.mu.Unlock()
	return &Sender[T]{state: s}
}

// Close drops this sender. Closing an already closed sender is a no-op.
func (tx *Sender[T]) Close() {
	if !tx.closed.CompareAndSwap(false, true) {
		return
	}
	s := tx.state
	s.mu.Lock()
	s.senders--
	last := s.senders == 0
	s.mu.Unlock()
	if last {
		s.notify()
	}
}

// pop returns the next buffered value, or reports whether the channel is
// drained for good.
func (rx *Receiver[T]) pop() (value T, ok bool, finished bool) {
	s := rx.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.head < len(s.queue) {
		value = s.queue[s.head]
		var zero T
		s.queue[s.head] = zero
		s.head++
		s.compact()
		return value, true, false
	}
	return value, false, s.senders == 0
}

// compact reclaims the consumed prefix of the queue once it makes up more
// than half of it, so a receiver that never fully catches up does not grow
// the backing array without bound. Callers hold mu.
func (s *chanState[T]) compact() {
	switch {
	case s.head == len(s.queue):
		s.queue = s.queue[:0]
		s.head = 0
	case s.head > len(s.queue)/2:
		n := copy(s.queue, s.queue[s.head:])
		clear(s.queue[n:])
		s.queue = s.queue[:n]
		s.head = 0
	}
}

// Recv blocks until a value is available and returns it with ok == true.
// Once every sender is closed and the buffer is empty it returns the zero
// value and ok == false.
func (rx *Receiver[T]) Recv() (T, bool) {
	v, ok, _ := rx.RecvContext(context.Background())
	return v, ok
}

// RecvContext is Recv with best-effort cancellation: if ctx is done before a
// value arrives it returns ctx.Err(). Values are never lost on cancellation.
func (rx *Receiver[T]) RecvContext(ctx context.Context) (T, bool, error) {
	if rx.closed.Load() {
		panic("gocoord: receive on closed receiver")
	}
	for {
		v, ok, finished := rx.pop()
		if ok {
			return v, true, nil
		}
		if finished {
			return v, false, nil
		}
		select {
		case <-rx.state.ready:
		case <-ctx.Done():
			var zero T
			return zero, false, ctx.Err()
		}
	}
}

// TryRecv returns the next buffered value without blocking. ok is false if
// nothing is buffered; finished additionally reports that all senders are
// closed.
func (rx *Receiver[T]) TryRecv() (value T, ok bool, finished bool) {
	if rx.closed.Load() {
		panic("gocoord: receive on closed receiver")
	}
	return rx.pop()
}

// Iter yields received values until all senders are closed and the buffer
// is drained. Values consumed by one iteration are not seen again.
func (rx *Receiver[T]) Iter() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok := rx.Recv()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Len returns the number of buffered values.
func (rx *Receiver[T]) Len() int {
	s := rx.state
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) - s.head
}

// Close drops the receiver. Buffered values are discarded and every later
// Send fails with ErrChannelClosed.
func (rx *Receiver[T]) Close() {
	if !rx.closed.CompareAndSwap(false, true) {
		return
	}
	s := rx.state
	s.mu.Lock()
	s.receiverGone = true
	s.queue = nil
	s.head = 0
	s.mu.Unlock()
}
