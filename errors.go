package gocoord

import (
	"errors"
	"fmt"
	"runtime"
)

// Sentinel errors for coordination primitives
var (
	// ErrWorkerFailed indicates that a spawned unit of work terminated abnormally
	ErrWorkerFailed = errors.New("worker failed")

	// ErrTaskExited indicates that the work stopped its goroutine with
	// runtime.Goexit instead of returning
	ErrTaskExited = errors.New("task exited without returning")

	// ErrChannelClosed indicates a send after the receiver was dropped
	ErrChannelClosed = errors.New("channel closed")

	// ErrLockPoisoned indicates that a previous lock holder failed while holding the lock
	ErrLockPoisoned = errors.New("lock poisoned")

	// ErrInvalidConfig indicates invalid coordination parameters
	ErrInvalidConfig = errors.New("invalid configuration")
)

// WorkerFailure is returned by Join when the spawned work either returned an
// error or panicked. Exactly one of Err or Panic is set.
type WorkerFailure struct {
	Task TaskInfo

	// Err is the error returned by the work function.
	Err error

	// Panic is the value the work function panicked with, and Stack the
	// goroutine stack captured at the point of recovery.
	Panic any
	Stack string
}

func (e *WorkerFailure) Error() string {
	if e.Panicked() {
		return fmt.Sprintf("task %q (%s) panicked: %v", e.Task.Name, e.Task.ID, e.Panic)
	}
	return fmt.Sprintf("task %q (%s) failed: %v", e.Task.Name, e.Task.ID, e.Err)
}

// Panicked reports whether the failure came from a recovered panic.
func (e *WorkerFailure) Panicked() bool {
	return e.Err == nil
}

// Unwrap exposes both the sentinel and the underlying cause so errors.Is
// matches ErrWorkerFailed as well as whatever the work returned.
func (e *WorkerFailure) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrWorkerFailed, e.Err}
	}
	return []error{ErrWorkerFailed}
}

func newPanicFailure(info TaskInfo, v any) *WorkerFailure {
	// 8 KiB covers most stacks; runtime.Stack truncates if not.
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &WorkerFailure{
		Task:  info,
		Panic: v,
		Stack: string(buf[:n]),
	}
}

// FailureOf extracts the first *WorkerFailure in err's chain.
func FailureOf(err error) (*WorkerFailure, bool) {
	if err == nil {
		return nil, false
	}
	var wf *WorkerFailure
	if errors.As(err, &wf) {
		return wf, true
	}
	return nil, false
}

// AllFailures collects every *WorkerFailure from err's chain, including
// errors combined with errors.Join. Returns nil if none are found.
func AllFailures(err error) []*WorkerFailure {
	if err == nil {
		return nil
	}
	var out []*WorkerFailure
	collectFailures(err, &out)
	return out
}

func collectFailures(err error, out *[]*WorkerFailure) {
	switch e := err.(type) {
	case *WorkerFailure:
		*out = append(*out, e)
	case interface{ Unwrap() []error }:
		for _, sub := range e.Unwrap() {
			collectFailures(sub, out)
		}
	case interface{ Unwrap() error }:
		collectFailures(e.Unwrap(), out)
	}
}

// SendError is returned by Sender.Send when the receiver has been dropped.
// It hands the undelivered value back to the caller.
type SendError[T any] struct {
	Value T
}

func (e *SendError[T]) Error() string {
	return "send on channel with dropped receiver"
}

func (e *SendError[T]) Unwrap() error {
	return ErrChannelClosed
}

// ConfigError reports an invalid coordination parameter.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}
