package gocoord

// Number is the set of types Sum can add.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64
}

// Sum adds two numbers. It is the usual combine function for ParallelReduce.
func Sum[N Number](a, b N) N {
	return a + b
}

// Message is a value tagged with the producer that sent it. Receivers of a
// shared channel use Source and Seq to check per-producer ordering.
type Message[T any] struct {
	Value  T   // The actual value being transmitted
	Source int // Which producer sent it
	Seq    int // Position within that producer's stream
}

// Move hands the value at p to the caller and leaves the zero value behind,
// so the previous owner can no longer reach data now owned by a task.
//
//	data := []int{1, 2, 3}
//	owned := Move(&data) // data is nil from here on
//	h := Spawn(func() (int, error) { return len(owned), nil })
func Move[T any](p *T) T {
	v := *p
	var zero T
	*p = zero
	return v
}
