package gocoord

import (
	"sync"
	"sync/atomic"
)

// cellState is the storage shared by every handle of a Cell.
type cellState[T any] struct {
	mu       sync.Mutex
	value    T
	poisoned bool
	refs     atomic.Int64
	onDrop   func(T)
}

// Cell is a handle to a shared value guarded by a mutex. Handles are created
// with NewCell and CloneHandle; the value is dropped when the last handle is
// released.
//
// A Cell uses the refuse-access poisoning policy: if a holder panics while
// the lock is held, every later Lock, With and Load returns ErrLockPoisoned
// until ClearPoison is called.
type Cell[T any] struct {
	state    *cellState[T]
	released atomic.Bool
}

// CellOption configures a Cell at creation.
type CellOption[T any] func(*cellState[T])

// WithOnDrop registers a callback run with the final value once the last
// handle has been released.
func WithOnDrop[T any](fn func(T)) CellOption[T] {
	return func(s *cellState[T]) {
		s.onDrop = fn
	}
}

// NewCell creates a cell holding value and returns the first handle to it.
func NewCell[T any](value T, opts ...CellOption[T]) *Cell[T] {
	s := &cellState[T]{value: value}
	for _, opt := range opts {
		opt(s)
	}
	s.refs.Store(1)
	return &Cell[T]{state: s}
}

func (c *Cell[T]) live() *cellState[T] {
	if c.released.Load() {
		panic("gocoord: use of released cell handle")
	}
	return c.state
}

// CloneHandle returns another handle to the same cell.
func (c *Cell[T]) CloneHandle() *Cell[T] {
	s := c.live()
	s.refs.Add(1)
	return &Cell[T]{state: s}
}

// Release drops this handle. When the last handle is released the value is
// handed to the WithOnDrop callback and cleared. Releasing twice panics.
func (c *Cell[T]) Release() {
	if !c.released.CompareAndSwap(false, true) {
		panic("gocoord: cell handle released twice")
	}
	s := c.state
	c.state = nil
	if s.refs.Add(-1) > 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onDrop != nil {
		s.onDrop(s.value)
	}
	var zero T
	s.value = zero
}

// RefCount returns the number of live handles to the cell.
func (c *Cell[T]) RefCount() int64 {
	return c.live().refs.Load()
}

// Guard is exclusive access to a Cell's value. It must be released with
// Unlock, which should be deferred directly:
//
//	g, err := cell.Lock()
//	if err != nil {
//	    return err
//	}
//	defer g.Unlock()
//	*g.Value() += 1
//
// When deferred this way, a panic inside the critical section poisons the
// cell before the lock is released and the panic continues unwinding.
type Guard[T any] struct {
	state    *cellState[T]
	unlocked bool
}

// Lock blocks until the cell's lock is acquired. It returns ErrLockPoisoned,
// without holding the lock, if a previous holder panicked.
func (c *Cell[T]) Lock() (*Guard[T], error) {
	s := c.live()
	s.mu.Lock()
	if s.poisoned {
		s.mu.Unlock()
		return nil, ErrLockPoisoned
	}
	return &Guard[T]{state: s}, nil
}

// Value returns a pointer to the guarded value. It is only valid until Unlock.
func (g *Guard[T]) Value() *T {
	if g.unlocked {
		panic("gocoord: access through unlocked guard")
	}
	return &g.state.value
}

// Unlock releases the lock. Unlocking twice panics.
func (g *Guard[T]) Unlock() {
	if g.unlocked {
		panic("gocoord: guard unlocked twice")
	}
	g.unlocked = true
	// recover only observes the panic when Unlock itself is the deferred call.
	if r := recover(); r != nil {
		g.state.poisoned = true
		g.state.mu.Unlock()
		panic(r)
	}
	g.state.mu.Unlock()
}

// With runs fn with exclusive access to the value. A panic in fn poisons the
// cell, releases the lock and is re-raised. The error returned by fn is
// passed through.
func (c *Cell[T]) With(fn func(v *T) error) error {
	g, err := c.Lock()
	if err != nil {
		return err
	}
	defer g.Unlock()
	return fn(g.Value())
}

// Load returns a copy of the value taken under the lock.
func (c *Cell[T]) Load() (T, error) {
	var out T
	err := c.With(func(v *T) error {
		out = *v
		return nil
	})
	return out, err
}

// IsPoisoned reports whether a previous holder panicked while holding the lock.
func (c *Cell[T]) IsPoisoned() bool {
	s := c.live()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.poisoned
}

// ClearPoison marks the cell healthy again, typically after the caller has
// verified or repaired the value with Store.
func (c *Cell[T]) ClearPoison() {
	s := c.live()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poisoned = false
}

// Store replaces the value regardless of poisoning.
func (c *Cell[T]) Store(value T) {
	s := c.live()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
}
