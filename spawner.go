package gocoord

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultTaskName = "task"

type spawnConfig struct {
	name    string
	onStart func(TaskInfo)
	onDone  func(TaskInfo, error, time.Duration)
}

// SpawnOption configures tasks created by Spawn, Go and SpawnN.
type SpawnOption func(*spawnConfig)

// WithName sets the task name. SpawnN suffixes it with the worker index.
func WithName(name string) SpawnOption {
	return func(c *spawnConfig) {
		c.name = name
	}
}

// WithOnStart registers a hook invoked on the task's goroutine right before
// the work runs. A panic in the hook fails the task like a panic in the work.
func WithOnStart(fn func(TaskInfo)) SpawnOption {
	return func(c *spawnConfig) {
		c.onStart = fn
	}
}

// WithOnDone registers a hook invoked on the task's goroutine after the work
// returns, with the task error (nil on success) and wall-clock duration.
// Join does not return before the hook has run.
func WithOnDone(fn func(TaskInfo, error, time.Duration)) SpawnOption {
	return func(c *spawnConfig) {
		c.onDone = fn
	}
}

func newSpawnConfig(opts []SpawnOption) *spawnConfig {
	cfg := &spawnConfig{name: defaultTaskName}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *spawnConfig) taskInfo(index int) TaskInfo {
	name := c.name
	if index >= 0 {
		name = fmt.Sprintf("%s[%d]", c.name, index)
	}
	return TaskInfo{
		ID:    uuid.New(),
		Name:  name,
		Index: index,
	}
}

// SpawnN starts n tasks, the i-th running factory(i), and returns their
// handles in index order. A negative n is a *ConfigError and nothing is
// spawned.
//
// Each task receives only its index; any data the task needs should be
// captured by value inside factory so that the spawning goroutine does not
// keep mutating it.
func SpawnN[T any](n int, factory func(i int) (T, error), opts ...SpawnOption) ([]*TaskHandle[T], error) {
	if n < 0 {
		return nil, &ConfigError{Field: "task count", Value: n, Reason: "must not be negative"}
	}
	cfg := newSpawnConfig(opts)
	handles := make([]*TaskHandle[T], n)
	for i := range n {
		handles[i] = spawn(cfg, cfg.taskInfo(i), func() (T, error) {
			return factory(i)
		})
	}
	return handles, nil
}

// JoinAll joins every handle in order and returns the results in handle
// order, regardless of completion order. If any task failed, the first
// failure (in handle order) is returned after all handles have been joined;
// results of failed tasks are left as zero values.
func JoinAll[T any](handles []*TaskHandle[T]) ([]T, error) {
	results := make([]T, len(handles))
	var first error
	for i, h := range handles {
		v, err := h.Join()
		if err != nil {
			if first == nil {
				first = err
			}
			continue
		}
		results[i] = v
	}
	return results, first
}
