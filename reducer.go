package gocoord

import (
	"log/slog"
)

// Partial is the result of one chunk worker: how many items it processed
// and the value its map function produced.
type Partial[R any] struct {
	Index int
	Count int
	Value R
}

// Reduction is the outcome of ParallelReduce.
type Reduction[R any] struct {
	// Value is the combined result of all chunks.
	Value R
	// Count is the total number of input items processed.
	Count int
	// Partials holds the per-chunk results in chunk order.
	Partials []Partial[R]
}

type reduceConfig[R any] struct {
	initial    R
	hasInitial bool
	spawnOpts  []SpawnOption
}

// ReduceOption is a functional option for configuring ParallelReduce
type ReduceOption[R any] func(*reduceConfig[R])

// WithInitial seeds the fold. Without it the fold starts from the first
// chunk's value, and an empty input reduces to the zero value.
func WithInitial[R any](initial R) ReduceOption[R] {
	return func(c *reduceConfig[R]) {
		c.initial = initial
		c.hasInitial = true
	}
}

// WithSpawnOptions forwards options to the chunk workers.
func WithSpawnOptions[R any](opts ...SpawnOption) ReduceOption[R] {
	return func(c *reduceConfig[R]) {
		c.spawnOpts = append(c.spawnOpts, opts...)
	}
}

// ParallelReduce partitions input into at most workers contiguous chunks,
// runs mapFn over each chunk on its own goroutine and folds the partial
// results with combineFn in chunk order.
//
// combineFn should be associative so the value does not depend on how the
// input was split. A non-positive worker count is rejected with a
// *ConfigError before anything is spawned. If any chunk fails, every chunk
// is still joined and the first failure is returned.
//
// Example:
//
//	r, err := ParallelReduce(nums, 4,
//	    func(chunk []int) (int, error) { return sumSquares(chunk), nil },
//	    func(a, b int) int { return a + b })
func ParallelReduce[T, R any](input []T, workers int,
	mapFn func(chunk []T) (R, error),
	combineFn func(acc, next R) R,
	opts ...ReduceOption[R]) (Reduction[R], error) {
	cfg := &reduceConfig[R]{}
	for _, opt := range opts {
		opt(cfg)
	}

	chunks, err := Partition(input, workers)
	if err != nil {
		return Reduction[R]{}, err
	}

	spawnOpts := append([]SpawnOption{WithName("chunk")}, cfg.spawnOpts...)
	handles, err := SpawnN(len(chunks), func(i int) (Partial[R], error) {
		chunk := chunks[i]
		v, err := mapFn(chunk)
		return Partial[R]{Index: i, Count: len(chunk), Value: v}, err
	}, spawnOpts...)
	if err != nil {
		return Reduction[R]{}, err
	}

	partials, err := JoinAll(handles)
	if err != nil {
		return Reduction[R]{}, err
	}

	out := Reduction[R]{Partials: partials}
	acc, started := cfg.initial, cfg.hasInitial
	for _, p := range partials {
		out.Count += p.Count
		if !started {
			acc, started = p.Value, true
			continue
		}
		acc = combineFn(acc, p.Value)
	}
	out.Value = acc
	slog.Debug("reduction complete", "chunks", len(partials), "count", out.Count)
	return out, nil
}
