package gocoord

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// TaskState describes where a spawned unit of work is in its lifecycle.
type TaskState int32

const (
	// TaskRunning means the work has not finished yet.
	TaskRunning TaskState = iota
	// TaskCompleted means the work returned a value without error.
	TaskCompleted
	// TaskFailed means the work returned an error.
	TaskFailed
	// TaskPanicked means the work panicked and the panic was recovered.
	TaskPanicked
)

func (s TaskState) String() string {
	switch s {
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	case TaskPanicked:
		return "panicked"
	}
	return "unknown"
}

// TaskInfo identifies a spawned task. It is passed to lifecycle hooks and
// carried by every WorkerFailure.
type TaskInfo struct {
	ID   uuid.UUID
	Name string
	// Index is the position of the task within a SpawnN batch, or -1.
	Index int
}

// TaskHandle is a reference to a concurrently executing unit of work that
// produces a T. A handle can be joined exactly once.
type TaskHandle[T any] struct {
	info   TaskInfo
	done   chan struct{}
	value  T
	err    error
	state  atomic.Int32
	joined atomic.Bool
}

// Spawn starts work on a new goroutine and returns its handle immediately.
// Errors returned by work and panics raised by it are both surfaced by Join
// as a *WorkerFailure.
func Spawn[T any](work func() (T, error), opts ...SpawnOption) *TaskHandle[T] {
	cfg := newSpawnConfig(opts)
	return spawn(cfg, cfg.taskInfo(-1), work)
}

// Go spawns work that produces no value.
func Go(work func(), opts ...SpawnOption) *TaskHandle[struct{}] {
	return Spawn(func() (struct{}, error) {
		work()
		return struct{}{}, nil
	}, opts...)
}

func spawn[T any](cfg *spawnConfig, info TaskInfo, work func() (T, error)) *TaskHandle[T] {
	h := &TaskHandle[T]{
		info: info,
		done: make(chan struct{}),
	}
	go h.run(cfg, work)
	return h
}

func (h *TaskHandle[T]) run(cfg *spawnConfig, work func() (T, error)) {
	start := time.Now()
	normalReturn := false
	// Deferred so that done is closed even when work calls runtime.Goexit.
	defer func() {
		if !normalReturn {
			var zero T
			h.value, h.err = zero, &WorkerFailure{Task: h.info, Err: ErrTaskExited}
		}
		h.finish(cfg, time.Since(start))
	}()
	h.value, h.err = h.exec(cfg, work)
	normalReturn = true
}

// finish runs the done hook, publishes the final state and releases joiners.
func (h *TaskHandle[T]) finish(cfg *spawnConfig, elapsed time.Duration) {
	if cfg.onDone != nil {
		if hookErr := h.callOnDone(cfg, elapsed); hookErr != nil {
			h.err = errors.Join(h.err, hookErr)
		}
	}

	state := TaskCompleted
	if wf, ok := FailureOf(h.err); ok {
		state = TaskFailed
		if wf.Panicked() {
			state = TaskPanicked
		}
	}
	h.state.Store(int32(state))

	slog.Debug("task finished", "task", h.info.Name, "id", h.info.ID, "state", state, "elapsed", elapsed)
	close(h.done)
}

// callOnDone turns a panic in the done hook into a task failure.
func (h *TaskHandle[T]) callOnDone(cfg *spawnConfig, elapsed time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicFailure(h.info, r)
		}
	}()
	cfg.onDone(h.info, h.err, elapsed)
	return nil
}

// exec runs the start hook and the work with panic recovery.
func (h *TaskHandle[T]) exec(cfg *spawnConfig, work func() (T, error)) (val T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			val, err = zero, newPanicFailure(h.info, r)
		}
	}()
	if cfg.onStart != nil {
		cfg.onStart(h.info)
	}
	val, err = work()
	if err != nil {
		err = &WorkerFailure{Task: h.info, Err: err}
	}
	return val, err
}

// Join blocks until the work finishes and returns its result. A failed or
// panicked task yields a *WorkerFailure. Join panics if called a second time
// on the same handle.
func (h *TaskHandle[T]) Join() (T, error) {
	if !h.joined.CompareAndSwap(false, true) {
		panic("gocoord: task handle joined twice")
	}
	<-h.done
	return h.value, h.err
}

// Done returns a channel that is closed once the work has finished. Waiting
// on it does not consume the handle.
func (h *TaskHandle[T]) Done() <-chan struct{} {
	return h.done
}

// Joined reports whether Join has been called on this handle.
func (h *TaskHandle[T]) Joined() bool {
	return h.joined.Load()
}

// State returns the current lifecycle state of the task.
func (h *TaskHandle[T]) State() TaskState {
	return TaskState(h.state.Load())
}

// Info returns the identity of the task.
func (h *TaskHandle[T]) Info() TaskInfo {
	return h.info
}
