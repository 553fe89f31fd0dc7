package gocoord

import (
	"fmt"
	"log"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ExampleCell() {
	counter := NewCell(0)
	defer counter.Release()

	handles, _ := SpawnN(10, func(int) (struct{}, error) {
		return struct{}{}, counter.With(func(n *int) error {
			*n += 1
			return nil
		})
	})
	JoinAll(handles)

	n, _ := counter.Load()
	fmt.Println("Final counter value:", n)

	// Output:
	// Final counter value: 10
}

func TestCellConcurrentIncrements(t *testing.T) {
	for _, k := range []int{1, 10, 1000} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			counter := NewCell(0)
			defer counter.Release()

			var inside, overlaps atomic.Int32
			handles, err := SpawnN(k, func(int) (struct{}, error) {
				h := counter.CloneHandle()
				defer h.Release()

				g, err := h.Lock()
				if err != nil {
					return struct{}{}, err
				}
				defer g.Unlock()
				if inside.Add(1) > 1 {
					overlaps.Add(1)
				}
				*g.Value() += 1
				inside.Add(-1)
				return struct{}{}, nil
			})
			require.NoError(t, err)

			_, err = JoinAll(handles)
			require.NoError(t, err)

			n, err := counter.Load()
			require.NoError(t, err)
			assert.Equal(t, k, n)
			assert.Equal(t, int32(0), overlaps.Load(), "critical sections overlapped")
			assert.Equal(t, int64(1), counter.RefCount())
		})
	}
}

func TestCellPoisonedByPanicInWith(t *testing.T) {
	log.Println("============== TestCellPoisonedByPanicInWith ================")
	cell := NewCell([]string{"a"})
	defer cell.Release()

	h := Go(func() {
		cell.With(func(v *[]string) error {
			*v = append(*v, "half-written")
			panic("crash in critical section")
		})
	})
	_, err := h.Join()
	require.Error(t, err)

	assert.True(t, cell.IsPoisoned())

	_, err = cell.Lock()
	assert.ErrorIs(t, err, ErrLockPoisoned)
	_, err = cell.Load()
	assert.ErrorIs(t, err, ErrLockPoisoned)
	err = cell.With(func(*[]string) error {
		t.Error("poisoned cell granted access")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockPoisoned)

	// the lock itself was released on the unwind path
	cell.Store([]string{"repaired"})
	cell.ClearPoison()
	v, err := cell.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"repaired"}, v)
}

func TestCellPoisonedByPanicUnderDeferredGuard(t *testing.T) {
	cell := NewCell(1)
	defer cell.Release()

	assert.PanicsWithValue(t, "oops", func() {
		g, err := cell.Lock()
		require.NoError(t, err)
		defer g.Unlock()
		*g.Value() = 2
		panic("oops")
	})

	assert.True(t, cell.IsPoisoned())
	_, err := cell.Lock()
	assert.ErrorIs(t, err, ErrLockPoisoned)
}

func TestCellErrorInWithDoesNotPoison(t *testing.T) {
	cell := NewCell(1)
	defer cell.Release()

	err := cell.With(func(v *int) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, cell.IsPoisoned())
}

func TestGuardMisuse(t *testing.T) {
	cell := NewCell(0)
	defer cell.Release()

	g, err := cell.Lock()
	require.NoError(t, err)
	g.Unlock()

	assert.PanicsWithValue(t, "gocoord: guard unlocked twice", g.Unlock)
	assert.PanicsWithValue(t, "gocoord: access through unlocked guard", func() { g.Value() })
	assert.False(t, cell.IsPoisoned())
}

func TestCellLifetimeFollowsLastHandle(t *testing.T) {
	var dropped atomic.Int32
	var final atomic.Int64
	first := NewCell(int64(5), WithOnDrop(func(v int64) {
		dropped.Add(1)
		final.Store(v)
	}))

	second := first.CloneHandle()
	third := second.CloneHandle()
	assert.Equal(t, int64(3), first.RefCount())

	first.Release()
	assert.Equal(t, int64(2), second.RefCount())
	require.NoError(t, third.With(func(v *int64) error {
		*v = 9
		return nil
	}))

	third.Release()
	assert.Equal(t, int32(0), dropped.Load())

	second.Release()
	assert.Equal(t, int32(1), dropped.Load())
	assert.Equal(t, int64(9), final.Load())
}

func TestReleasedHandlePanics(t *testing.T) {
	cell := NewCell("x")
	other := cell.CloneHandle()
	defer other.Release()

	cell.Release()
	assert.PanicsWithValue(t, "gocoord: cell handle released twice", cell.Release)
	assert.PanicsWithValue(t, "gocoord: use of released cell handle", func() { cell.Lock() })
	assert.PanicsWithValue(t, "gocoord: use of released cell handle", func() { cell.CloneHandle() })

	v, err := other.Load()
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}
