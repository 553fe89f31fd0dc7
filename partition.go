package gocoord

import "slices"

// ChunkSize returns the number of chunks and the base chunk size used to
// split n items across the given number of workers. The chunk count is
// clamped to n so that no chunk is empty; the last chunk additionally
// absorbs n % chunks items.
func ChunkSize(n, workers int) (chunks, size int, err error) {
	if workers <= 0 {
		return 0, 0, &ConfigError{Field: "worker count", Value: workers, Reason: "must be positive"}
	}
	if n == 0 {
		return 0, 0, nil
	}
	chunks = min(workers, n)
	return chunks, n / chunks, nil
}

// Partition splits input into contiguous, non-overlapping chunks, one per
// worker, in input order. Every chunk is a copy, so a worker owning a chunk
// shares no backing array with the caller or with other workers.
func Partition[T any](input []T, workers int) ([][]T, error) {
	chunks, size, err := ChunkSize(len(input), workers)
	if err != nil {
		return nil, err
	}
	out := make([][]T, 0, chunks)
	for i := range chunks {
		lo := i * size
		hi := lo + size
		if i == chunks-1 {
			hi = len(input)
		}
		out = append(out, slices.Clone(input[lo:hi]))
	}
	return out, nil
}
