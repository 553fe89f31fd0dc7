// Package gocoord provides a small task coordination core for Go programs.
//
// The main components include:
//
//   - TaskHandle: a goroutine running one unit of work, joinable exactly once. Errors and panics in the work are surfaced by Join as a *WorkerFailure
//   - SpawnN / JoinAll: fan out n indexed tasks and join them back in spawn order, joining every handle even when some fail
//   - Cell: a reference-counted value guarded by a mutex, with scoped Guards and panic poisoning (ErrLockPoisoned)
//   - Sender / Receiver: an unbounded multi-producer, single-consumer channel whose receive side finishes once every Sender is closed
//   - Partition / ParallelReduce: split a slice into contiguous chunks, reduce each chunk on its own goroutine and fold the partials in chunk order
//   - FanIn: merge native Go channels into one Receiver
//
// Ordering guarantees are deliberately narrow. Values sent by one Sender are
// received in send order, but values from different Senders interleave in an
// unspecified way. JoinAll and ParallelReduce order results by spawn order,
// never by completion order.
//
// Data handed to a spawned task should be owned by that task: capture copies
// in the work closure (Partition already copies each chunk) and share
// mutable state only through a Cell.
//
// Prefer Cell.With for critical sections. It always unlocks and poisons the
// cell if fn panics. A Guard from Cell.Lock only detects a panic when its
// Unlock is deferred directly; a Guard unlocked by hand stays locked forever
// if the code between Lock and Unlock panics.
//
// A task whose work stops its goroutine with runtime.Goexit, for example
// through t.FailNow in a test, still completes: Join reports a
// *WorkerFailure wrapping ErrTaskExited.
package gocoord
